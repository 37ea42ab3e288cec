package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	u := User{PasswordHash: HashPassword("hunter2-but-long")}

	assert.True(t, u.VerifyPassword("hunter2-but-long"))
	assert.False(t, u.VerifyPassword("wrong"))
}

func TestVerifyPassword_BadHash(t *testing.T) {
	u := User{PasswordHash: "not-a-hash"}

	assert.False(t, u.VerifyPassword("anything"))
}

func TestResultsBucket(t *testing.T) {
	g := Group{Code: "ach"}

	assert.Equal(t, "results-ach", g.ResultsBucket())
}
