package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/thanhnp/ledger-node/internal/models"
	"github.com/thanhnp/ledger-node/internal/version"
	"github.com/thanhnp/ledger-node/pkg/semver"
)

// maxChainBody caps how much of a peer's /chain response is read
const maxChainBody = 64 << 20

var (
	ErrBadStatus           = errors.New("peer returned non-success status")
	ErrMalformedBody       = errors.New("peer returned malformed chain body")
	ErrIncompatibleVersion = errors.New("peer protocol version is incompatible")
)

// PeerClient fetches chains from other nodes over HTTP
type PeerClient struct {
	client *http.Client
	scheme string
}

// NewPeerClient creates a PeerClient. timeout bounds each request; the
// caller's context may cut it shorter.
func NewPeerClient(timeout time.Duration) *PeerClient {
	return &PeerClient{
		client: &http.Client{Timeout: timeout},
		scheme: "http",
	}
}

// FetchChain retrieves the chain served by GET http://<peer>/chain
func (c *PeerClient) FetchChain(ctx context.Context, peer string) (*models.ChainResponse, error) {
	url := fmt.Sprintf("%s://%s/chain", c.scheme, peer)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", peer, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain from %s: %w", peer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s answered %d", ErrBadStatus, peer, resp.StatusCode)
	}

	if err := checkVersion(resp.Header.Get(version.Header)); err != nil {
		return nil, fmt.Errorf("%s: %w", peer, err)
	}

	var body models.ChainResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxChainBody)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedBody, peer, err)
	}

	return &body, nil
}

// checkVersion accepts peers that don't advertise a version at all, since the
// original node software never did
func checkVersion(advertised string) error {
	if advertised == "" {
		return nil
	}
	peerVer, err := semver.Parse(advertised)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIncompatibleVersion, err)
	}
	if !semver.AnyCompatible(version.Compatible, peerVer) {
		return fmt.Errorf("%w: advertises %v but requires one of %v",
			ErrIncompatibleVersion, peerVer, version.Compatible)
	}
	return nil
}
