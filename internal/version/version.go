package version

import "github.com/thanhnp/ledger-node/pkg/semver"

// Header carries the node's protocol version on every HTTP response
const Header = "X-Ledger-Version"

// Current is the protocol version this node speaks. The major number changes
// whenever the block hash encoding or the proof predicate changes.
var Current = semver.NewSemver(1, 0, 0)

// Compatible lists peer protocol versions whose chains this node can verify
var Compatible = []semver.Semver{
	semver.NewSemver(1, 0, 0),
}
