package objectstore

// Statement is one entry of an access policy document.
type Statement struct {
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource []string `json:"Resource"`
}

// Policy is an S3 access policy document.
type Policy struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// policyVersion is the fixed version string of the policy language.
const policyVersion = "2012-10-17"

// deleteActions are explicitly denied on group buckets: members read and
// write objects but can never destroy data, not even their own.
var deleteActions = []string{
	"s3:DeleteBucket",
	"s3:ForceDeleteBucket",
	"s3:DeleteObject",
	"s3:DeleteObjectVersion",
}

// NewGroupPolicy builds the policy installed for a permission group: full S3
// access to the group's two buckets minus deletion.
func NewGroupPolicy(code string) Policy {
	resources := []string{
		"arn:aws:s3:::" + code + "/*",
		"arn:aws:s3:::results-" + code + "/*",
	}

	return Policy{
		Version: policyVersion,
		Statement: []Statement{
			{
				Effect:   "Allow",
				Action:   []string{"s3:*"},
				Resource: resources,
			},
			{
				Effect:   "Deny",
				Action:   deleteActions,
				Resource: resources,
			},
		},
	}
}
