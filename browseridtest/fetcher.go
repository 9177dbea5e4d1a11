package browseridtest

import (
	"sync/atomic"

	"github.com/return42/browserid/supportdoc"
)

// Fetcher serves support documents built from the deterministic dummy keys,
// standing in for the network. A few magic hostnames exercise authority
// delegation:
//
//	redirect.org        delegates to delegated.org
//	redirect-twice.org  delegates to redirect.org
//	infinite.org        delegates to itself
type Fetcher struct {
	// Err, when set, is returned from every fetch.
	Err error

	calls atomic.Int64
}

var _ supportdoc.Fetcher = (*Fetcher)(nil)

func (f *Fetcher) FetchSupportDocument(hostname string) (*supportdoc.Document, error) {
	f.calls.Add(1)
	if f.Err != nil {
		return nil, f.Err
	}

	switch hostname {
	case "redirect.org":
		return &supportdoc.Document{Authority: "delegated.org"}, nil
	case "redirect-twice.org":
		return &supportdoc.Document{Authority: "redirect.org"}, nil
	case "infinite.org":
		return &supportdoc.Document{Authority: "infinite.org"}, nil
	}

	public, _ := Keypair(hostname)

	return &supportdoc.Document{PublicKey: public}, nil
}

// Calls reports how many fetches have happened, so tests can assert that a
// code path never touched the network.
func (f *Fetcher) Calls() int64 {
	return f.calls.Load()
}
