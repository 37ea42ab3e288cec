// Package objectstore is the administrative client to the S3-compatible
// object store. Identity, group and policy administration goes through the
// line-oriented mc admin CLI as a sub-process; bucket operations use the S3
// API directly.
package objectstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/genovault/genovault/internal/config"
)

const (
	defaultTimeout = 30 * time.Second
)

// Client drives the object store with root credentials.
type Client struct {
	cfg config.ObjectStore
	s3  *minio.Client
}

// New creates the administrative client from the configuration.
func New(cfg config.ObjectStore) (*Client, error) {
	s3, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create s3 client")
	}

	if cfg.MCBinary == "" {
		cfg.MCBinary = "mc"
	}

	return &Client{cfg: cfg, s3: s3}, nil
}

// Test verifies the connection by listing buckets.
func (c *Client) Test() error {
	if c == nil || c.s3 == nil {
		return ErrClientNotInitialized
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	buckets, err := c.s3.ListBuckets(ctx)
	if err != nil {
		return errors.Wrap(err, "object store connection test failed")
	}

	log.Info().Int("bucket_count", len(buckets)).Msg("object store connection test successful")

	return nil
}

// run invokes mc with --json and parses one JSON document per output line.
// A non-zero exit code is a failure; stderr is attached to the error.
// Secrets never appear in the returned error, only the admin verb.
func (c *Client) run(verb string, args ...string) ([]json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	full := append([]string{"--json", "admin", verb}, args...)

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, c.cfg.MCBinary, full...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "mc admin %s failed: %s", verb, stderr.String())
	}

	return parseLines(stdout.Bytes())
}

// parseLines splits the output into JSON documents, one per non-empty line.
func parseLines(out []byte) ([]json.RawMessage, error) {
	var docs []json.RawMessage

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if !json.Valid(line) {
			return nil, errors.Errorf("mc output line is not valid JSON: %.80s", line)
		}

		doc := make(json.RawMessage, len(line))
		copy(doc, line)
		docs = append(docs, doc)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan mc output")
	}

	return docs, nil
}

// UserInfo is one credential known to the object store.
type UserInfo struct {
	AccessKey string `json:"accessKey"`
	Status    string `json:"userStatus"`
}

// AddUser creates a credential pair. Adding an existing access key replaces
// its secret.
func (c *Client) AddUser(accessKey, secretKey string) error {
	_, err := c.run("user", "add", c.cfg.Alias, accessKey, secretKey)
	return err
}

// RemoveUser destroys a credential pair.
func (c *Client) RemoveUser(accessKey string) error {
	_, err := c.run("user", "remove", c.cfg.Alias, accessKey)
	return err
}

// ListUsers returns every credential known to the object store.
func (c *Client) ListUsers() ([]UserInfo, error) {
	docs, err := c.run("user", "list", c.cfg.Alias)
	if err != nil {
		return nil, err
	}

	users := make([]UserInfo, 0, len(docs))

	for _, doc := range docs {
		var u UserInfo
		if err := json.Unmarshal(doc, &u); err != nil {
			return nil, errors.Wrap(err, "failed to decode user list entry")
		}

		users = append(users, u)
	}

	return users, nil
}

// HasUser reports whether the access key exists on the object store.
func (c *Client) HasUser(accessKey string) (bool, error) {
	users, err := c.ListUsers()
	if err != nil {
		return false, err
	}

	for _, u := range users {
		if u.AccessKey == accessKey {
			return true, nil
		}
	}

	return false, nil
}

// GroupAdd adds member access keys to a group, creating the group as needed.
// The call is an upsert: re-adding a member is a no-op.
func (c *Client) GroupAdd(group string, members ...string) error {
	_, err := c.run("group", append([]string{"add", c.cfg.Alias, group}, members...)...)
	return err
}

// GroupRemove removes member access keys from a group; with no members it
// removes the (empty) group itself.
func (c *Client) GroupRemove(group string, members ...string) error {
	_, err := c.run("group", append([]string{"remove", c.cfg.Alias, group}, members...)...)
	return err
}

type groupInfo struct {
	Name    string   `json:"groupName"`
	Members []string `json:"members"`
}

// GroupMembers returns the access keys belonging to a group. A group unknown
// to the object store has no members.
func (c *Client) GroupMembers(group string) ([]string, error) {
	docs, err := c.run("group", "info", c.cfg.Alias, group)
	if err != nil {
		return nil, nil //nolint:nilerr // unknown group means empty membership
	}

	for _, doc := range docs {
		var info groupInfo
		if err := json.Unmarshal(doc, &info); err != nil {
			return nil, errors.Wrap(err, "failed to decode group info")
		}

		if info.Name == group {
			return info.Members, nil
		}
	}

	return nil, nil
}

// AddCannedPolicy installs a named policy document.
func (c *Client) AddCannedPolicy(name string, policy Policy) error {
	doc, err := json.Marshal(policy)
	if err != nil {
		return errors.Wrap(err, "failed to marshal policy")
	}

	// mc only reads policies from disk
	tmp, err := os.CreateTemp("", "genovault-policy-*.json")
	if err != nil {
		return errors.Wrap(err, "failed to create policy temp file")
	}

	defer func() {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			log.Warn().Err(rmErr).Str("path", tmp.Name()).Msg("failed to remove policy temp file")
		}
	}()

	if _, err = tmp.Write(doc); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to write policy temp file")
	}

	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close policy temp file")
	}

	_, err = c.run("policy", "create", c.cfg.Alias, name, filepath.Clean(tmp.Name()))

	return err
}

// RemovePolicy removes a named policy.
func (c *Client) RemovePolicy(name string) error {
	_, err := c.run("policy", "remove", c.cfg.Alias, name)
	return err
}

// SetGroupPolicy binds a named policy to a group. Setting the same policy
// again is a no-op, which keeps membership reconciliation re-runnable.
func (c *Client) SetGroupPolicy(policy, group string) error {
	_, err := c.run("policy", "set", c.cfg.Alias, policy, "group="+group)
	return err
}

// MakeBucket creates a bucket and fails closed when it already exists.
func (c *Client) MakeBucket(name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	exists, err := c.s3.BucketExists(ctx, name)
	if err != nil {
		return errors.Wrapf(err, "failed to check bucket %s", name)
	}

	if exists {
		return errors.Wrapf(ErrBucketExists, "bucket %s", name)
	}

	if err := c.s3.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: c.cfg.Region}); err != nil {
		return errors.Wrapf(err, "failed to create bucket %s", name)
	}

	return nil
}

// BucketExists reports whether the bucket is present.
func (c *Client) BucketExists(name string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	exists, err := c.s3.BucketExists(ctx, name)
	if err != nil {
		return false, errors.Wrapf(err, "failed to check bucket %s", name)
	}

	return exists, nil
}
