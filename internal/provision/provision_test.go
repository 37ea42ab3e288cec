package provision

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/apperr"
	"github.com/genovault/genovault/internal/db/models"
	"github.com/genovault/genovault/internal/db/testdb"
	"github.com/genovault/genovault/internal/objectstore"
)

// fakeStore is an in-memory object store with per-call failure injection.
type fakeStore struct {
	buckets  map[string]bool
	policies map[string]objectstore.Policy
	bindings map[string]string
	users    map[string]string
	groups   map[string]map[string]bool

	failOn map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		buckets:  map[string]bool{},
		policies: map[string]objectstore.Policy{},
		bindings: map[string]string{},
		users:    map[string]string{},
		groups:   map[string]map[string]bool{},
		failOn:   map[string]error{},
	}
}

func (f *fakeStore) fail(call string) error {
	if err, ok := f.failOn[call]; ok {
		return err
	}

	return nil
}

func (f *fakeStore) MakeBucket(name string) error {
	if err := f.fail("MakeBucket:" + name); err != nil {
		return err
	}

	if f.buckets[name] {
		return errors.Wrapf(objectstore.ErrBucketExists, "bucket %s", name)
	}

	f.buckets[name] = true

	return nil
}

func (f *fakeStore) BucketExists(name string) (bool, error) {
	return f.buckets[name], nil
}

func (f *fakeStore) AddCannedPolicy(name string, policy objectstore.Policy) error {
	if err := f.fail("AddCannedPolicy"); err != nil {
		return err
	}

	f.policies[name] = policy

	return nil
}

func (f *fakeStore) RemovePolicy(name string) error {
	delete(f.policies, name)
	return nil
}

func (f *fakeStore) SetGroupPolicy(policy, group string) error {
	if err := f.fail("SetGroupPolicy"); err != nil {
		return err
	}

	f.bindings[group] = policy

	return nil
}

func (f *fakeStore) AddUser(accessKey, secretKey string) error {
	if err := f.fail("AddUser"); err != nil {
		return err
	}

	f.users[accessKey] = secretKey

	return nil
}

func (f *fakeStore) RemoveUser(accessKey string) error {
	if err := f.fail("RemoveUser"); err != nil {
		return err
	}

	delete(f.users, accessKey)

	for _, members := range f.groups {
		delete(members, accessKey)
	}

	return nil
}

func (f *fakeStore) HasUser(accessKey string) (bool, error) {
	_, ok := f.users[accessKey]
	return ok, nil
}

func (f *fakeStore) GroupAdd(group string, members ...string) error {
	if err := f.fail("GroupAdd"); err != nil {
		return err
	}

	if f.groups[group] == nil {
		f.groups[group] = map[string]bool{}
	}

	for _, m := range members {
		f.groups[group][m] = true
	}

	return nil
}

func (f *fakeStore) GroupRemove(group string, members ...string) error {
	if err := f.fail("GroupRemove"); err != nil {
		return err
	}

	if len(members) == 0 {
		if len(f.groups[group]) > 0 {
			return errors.Errorf("group %s is not empty", group)
		}

		delete(f.groups, group)

		return nil
	}

	for _, m := range members {
		delete(f.groups[group], m)
	}

	return nil
}

func (f *fakeStore) GroupMembers(group string) ([]string, error) {
	var members []string
	for m := range f.groups[group] {
		members = append(members, m)
	}

	return members, nil
}

func strPtr(s string) *string { return &s }

func setup(t *testing.T) (*Service, *fakeStore, *gorm.DB, *models.User) {
	t.Helper()

	db := testdb.Open(t)
	store := newFakeStore()

	admin := &models.User{Username: "admin", Email: "admin@example.org", IsAdmin: true}
	require.NoError(t, db.Create(admin).Error)

	return NewService(db, store), store, db, admin
}

func TestCreateGroup(t *testing.T) {
	svc, store, db, admin := setup(t)

	group, err := svc.CreateGroup(admin, "tst", "Test Hospital", nil)
	require.NoError(t, err)
	assert.NotZero(t, group.ID)

	assert.True(t, store.buckets["tst"])
	assert.True(t, store.buckets["results-tst"])
	assert.Contains(t, store.policies, "tst")

	var count int64
	require.NoError(t, db.Model(&models.Group{}).Where("code = ?", "tst").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateGroupWithMembers(t *testing.T) {
	svc, store, _, admin := setup(t)

	user := &models.User{
		Username:       "alice",
		Email:          "alice@example.org",
		MinioAccessKey: strPtr("alicekey"),
		MinioSecretKey: strPtr("alicesecret"),
	}
	require.NoError(t, svc.db.Create(user).Error)

	_, err := svc.CreateGroup(admin, "ach", "Alder Hey", []uint64{user.ID})
	require.NoError(t, err)

	assert.True(t, store.groups["ach"]["alicekey"])
	assert.Equal(t, "ach", store.bindings["ach"])
}

func TestCreateGroupTwice(t *testing.T) {
	svc, _, _, admin := setup(t)

	_, err := svc.CreateGroup(admin, "tst", "Test Hospital", nil)
	require.NoError(t, err)

	_, err = svc.CreateGroup(admin, "tst", "Other Name", nil)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCreateGroupInvalidCode(t *testing.T) {
	svc, _, _, admin := setup(t)

	for _, code := range []string{"", "ab", "UPPER", "has space", "results-x"} {
		_, err := svc.CreateGroup(admin, code, "Name", nil)
		assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err), "code %q", code)
	}
}

func TestCreateGroupBucketCollision(t *testing.T) {
	svc, store, db, admin := setup(t)

	// results bucket name is squatted; creation must fail closed
	store.buckets["results-tst"] = true

	_, err := svc.CreateGroup(admin, "tst", "Test Hospital", nil)
	require.Equal(t, apperr.KindExternalState, apperr.KindOf(err))

	// entity store rolled back, policy compensated, first bucket preserved
	var count int64
	require.NoError(t, db.Model(&models.Group{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.NotContains(t, store.policies, "tst")
	assert.True(t, store.buckets["tst"])
}

func TestGroupLifecycle(t *testing.T) {
	svc, store, db, admin := setup(t)

	user := &models.User{
		Username:       "bob",
		Email:          "bob@example.org",
		MinioAccessKey: strPtr("bobkey"),
		MinioSecretKey: strPtr("bobsecret"),
	}
	require.NoError(t, db.Create(user).Error)

	_, err := svc.CreateGroup(admin, "tst", "Test Hospital", nil)
	require.NoError(t, err)

	require.NoError(t, svc.AddGroupMembers(admin, "tst", []uint64{user.ID}))
	assert.True(t, store.groups["tst"]["bobkey"])

	var links int64
	require.NoError(t, db.Model(&models.UserGroup{}).Where("user_id = ?", user.ID).Count(&links).Error)
	assert.EqualValues(t, 1, links)

	// deletion refused while membership remains
	err = svc.DeleteGroup("tst")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	require.NoError(t, svc.RemoveGroupMembers(admin, "tst", []uint64{user.ID}))
	assert.False(t, store.groups["tst"]["bobkey"])

	require.NoError(t, svc.DeleteGroup("tst"))

	// buckets outlive the group, policy and group do not
	assert.True(t, store.buckets["tst"])
	assert.True(t, store.buckets["results-tst"])
	assert.NotContains(t, store.policies, "tst")
	assert.NotContains(t, store.groups, "tst")

	var count int64
	require.NoError(t, db.Model(&models.Group{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAddGroupMembersStoreFailureLeavesEntityStoreUntouched(t *testing.T) {
	svc, store, db, admin := setup(t)

	user := &models.User{
		Username:       "carol",
		Email:          "carol@example.org",
		MinioAccessKey: strPtr("carolkey"),
		MinioSecretKey: strPtr("carolsecret"),
	}
	require.NoError(t, db.Create(user).Error)

	_, err := svc.CreateGroup(admin, "tst", "Test Hospital", nil)
	require.NoError(t, err)

	store.failOn["GroupAdd"] = errors.New("connection refused")

	err = svc.AddGroupMembers(admin, "tst", []uint64{user.ID})
	require.Equal(t, apperr.KindExternalState, apperr.KindOf(err))

	var links int64
	require.NoError(t, db.Model(&models.UserGroup{}).Where("user_id = ?", user.ID).Count(&links).Error)
	assert.Zero(t, links)

	// the retry converges
	delete(store.failOn, "GroupAdd")

	require.NoError(t, svc.AddGroupMembers(admin, "tst", []uint64{user.ID}))
	assert.True(t, store.groups["tst"]["carolkey"])
}

func TestAddGroupMembersIsIdempotent(t *testing.T) {
	svc, store, db, admin := setup(t)

	user := &models.User{
		Username:       "dave",
		Email:          "dave@example.org",
		MinioAccessKey: strPtr("davekey"),
		MinioSecretKey: strPtr("davesecret"),
	}
	require.NoError(t, db.Create(user).Error)

	_, err := svc.CreateGroup(admin, "tst", "Test Hospital", nil)
	require.NoError(t, err)

	require.NoError(t, svc.AddGroupMembers(admin, "tst", []uint64{user.ID}))
	require.NoError(t, svc.AddGroupMembers(admin, "tst", []uint64{user.ID}))

	var links int64
	require.NoError(t, db.Model(&models.UserGroup{}).Where("user_id = ?", user.ID).Count(&links).Error)
	assert.EqualValues(t, 1, links)
	assert.True(t, store.groups["tst"]["davekey"])
}

func TestRenameGroup(t *testing.T) {
	svc, store, _, admin := setup(t)

	_, err := svc.CreateGroup(admin, "tst", "Test Hospital", nil)
	require.NoError(t, err)

	_, err = svc.CreateGroup(admin, "ach", "Alder Hey", nil)
	require.NoError(t, err)

	renamed, err := svc.RenameGroup(admin, "tst", "Renamed Hospital")
	require.NoError(t, err)
	assert.Equal(t, "Renamed Hospital", renamed.Name)
	assert.Equal(t, "tst", renamed.Code)

	// code, buckets and policy untouched
	assert.True(t, store.buckets["tst"])
	assert.Contains(t, store.policies, "tst")

	_, err = svc.RenameGroup(admin, "tst", "Alder Hey")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestDeleteGroupUnknown(t *testing.T) {
	svc, _, _, _ := setup(t)

	err := svc.DeleteGroup("nope")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRotateCredentials(t *testing.T) {
	svc, store, db, admin := setup(t)

	_, err := svc.CreateGroup(admin, "gr1", "Group One", nil)
	require.NoError(t, err)

	_, err = svc.CreateGroup(admin, "gr2", "Group Two", nil)
	require.NoError(t, err)

	user := &models.User{Username: "erin", Email: "erin@example.org"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, svc.AddGroupMembers(admin, "gr1", []uint64{user.ID}))
	require.NoError(t, svc.AddGroupMembers(admin, "gr2", []uint64{user.ID}))

	access0, secret0, err := svc.RotateCredentials(admin, user.ID)
	require.NoError(t, err)
	assert.Len(t, access0, 16)
	assert.Len(t, secret0, 32)
	assert.Contains(t, store.users, access0)
	assert.True(t, store.groups["gr1"][access0])
	assert.True(t, store.groups["gr2"][access0])

	access1, secret1, err := svc.RotateCredentials(admin, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, access0, access1)
	assert.NotEqual(t, secret0, secret1)

	// old credential is gone everywhere, the new one is live in every group
	assert.NotContains(t, store.users, access0)
	assert.False(t, store.groups["gr1"][access0])
	assert.True(t, store.groups["gr1"][access1])
	assert.True(t, store.groups["gr2"][access1])

	var fresh models.User
	require.NoError(t, db.First(&fresh, user.ID).Error)
	require.NotNil(t, fresh.MinioAccessKey)
	assert.Equal(t, access1, *fresh.MinioAccessKey)
	require.NotNil(t, fresh.MinioSecretKey)
	assert.Equal(t, secret1, *fresh.MinioSecretKey)
}

func TestRotateCredentialsStoreFailureKeepsOldKeys(t *testing.T) {
	svc, store, db, admin := setup(t)

	_, err := svc.CreateGroup(admin, "gr1", "Group One", nil)
	require.NoError(t, err)

	user := &models.User{Username: "frank", Email: "frank@example.org"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, svc.AddGroupMembers(admin, "gr1", []uint64{user.ID}))

	access0, _, err := svc.RotateCredentials(admin, user.ID)
	require.NoError(t, err)

	store.failOn["GroupAdd"] = errors.New("connection refused")

	_, _, err = svc.RotateCredentials(admin, user.ID)
	require.Equal(t, apperr.KindExternalState, apperr.KindOf(err))

	// entity store still carries the previous keys; a re-run converges
	var fresh models.User
	require.NoError(t, db.First(&fresh, user.ID).Error)
	require.NotNil(t, fresh.MinioAccessKey)
	assert.Equal(t, access0, *fresh.MinioAccessKey)

	delete(store.failOn, "GroupAdd")

	access2, _, err := svc.RotateCredentials(admin, user.ID)
	require.NoError(t, err)
	assert.True(t, store.groups["gr1"][access2])
}

func TestRotateCredentialsDeactivated(t *testing.T) {
	svc, _, db, admin := setup(t)

	user := &models.User{Username: "gone", Email: "gone@example.org", Deactivated: true}
	require.NoError(t, db.Create(user).Error)

	_, _, err := svc.RotateCredentials(admin, user.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestDeactivateUser(t *testing.T) {
	svc, store, db, admin := setup(t)

	user := &models.User{Username: "henry", Email: "henry@example.org"}
	require.NoError(t, db.Create(user).Error)

	access, _, err := svc.RotateCredentials(admin, user.ID)
	require.NoError(t, err)
	require.Contains(t, store.users, access)

	require.NoError(t, svc.DeactivateUser(admin, user.ID))

	var fresh models.User
	require.NoError(t, db.First(&fresh, user.ID).Error)
	assert.True(t, fresh.Deactivated)
	assert.Nil(t, fresh.MinioAccessKey)
	assert.Nil(t, fresh.MinioSecretKey)
	assert.NotContains(t, store.users, access)
}

func TestDeleteUser(t *testing.T) {
	svc, store, db, admin := setup(t)

	_, err := svc.CreateGroup(admin, "tst", "Test Hospital", nil)
	require.NoError(t, err)

	user := &models.User{Username: "iris", Email: "iris@example.org"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, svc.AddGroupMembers(admin, "tst", []uint64{user.ID}))

	access, _, err := svc.RotateCredentials(admin, user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(admin, user.ID))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, db.Model(&models.UserGroup{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Zero(t, count)

	assert.NotContains(t, store.users, access)
}

func TestDeleteUserReferencedDegradesToDeactivate(t *testing.T) {
	svc, _, db, admin := setup(t)

	user := &models.User{Username: "judy", Email: "judy@example.org"}
	require.NoError(t, db.Create(user).Error)

	family := &models.Family{Codename: "FAM01"}
	family.CreatedByID = user.ID
	family.UpdatedByID = user.ID
	require.NoError(t, db.Create(family).Error)

	err := svc.DeleteUser(admin, user.ID)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "deactivated instead")

	var fresh models.User
	require.NoError(t, db.First(&fresh, user.ID).Error)
	assert.True(t, fresh.Deactivated)
}
