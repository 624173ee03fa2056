package gitfs

import "github.com/wiretree/gitfs/core"

// Option configures a Session at construction time, following the same
// functional-options idiom go-git itself uses for git.PlainOpenOptions
// and friends.
type Option func(*config)

type config struct {
	create   bool
	bare     bool
	branch   string
	identity core.Identity
}

func defaultConfig() config {
	return config{create: true, bare: false, branch: "master"}
}

// WithCreate controls whether Open initializes a new repository when
// none exists at the target location. Defaults to true.
func WithCreate(create bool) Option {
	return func(c *config) { c.create = create }
}

// WithBare controls whether an OpenMemory repository is bare (no
// working tree, so commits skip working-tree checkout). Defaults to
// false. Open does not honour it: an on-disk repository always uses dir
// as its working tree with the database under dir/.git.
func WithBare(bare bool) Option {
	return func(c *config) { c.bare = bare }
}

// WithBranch selects the branch a Session operates against. Defaults to
// "master".
func WithBranch(branch string) Option {
	return func(c *config) { c.branch = branch }
}

// WithIdentity sets the default author/committer used for a transaction
// that does not set its own user/email.
func WithIdentity(identity core.Identity) Option {
	return func(c *config) { c.identity = identity }
}
