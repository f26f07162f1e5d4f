// Package transport speaks the smart-HTTP half of the git wire
// protocol: reference discovery against `info/refs` and the
// upload-pack request that turns a wanted commit into a packfile.
package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/ginternals/pktline"
	"golang.org/x/xerrors"
)

// uploadPackService is the service name smart-HTTP servers expect for
// fetch/clone operations
const uploadPackService = "git-upload-pack"

// ErrProtocol is returned when the remote doesn't speak the smart-HTTP
// protocol the way this package expects: a malformed advertisement, a
// missing HEAD, or an unexpected status code.
var ErrProtocol = errors.New("protocol error")

// Advertisement is the result of a reference discovery request
type Advertisement struct {
	// Head is the oid HEAD points at on the remote
	Head ginternals.Oid
	// Refs maps every advertised ref name to its oid, HEAD included
	Refs map[string]ginternals.Oid
}

// DiscoverRefs performs the `info/refs?service=git-upload-pack`
// request against repoURL and parses the ref advertisement.
func DiscoverRefs(client *http.Client, repoURL string) (*Advertisement, error) {
	req, err := http.NewRequest(http.MethodGet, repoURL+"/info/refs?service="+uploadPackService, nil)
	if err != nil {
		return nil, xerrors.Errorf("could not build discovery request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("could not reach %s: %w", repoURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best effort, we already have what we need

	if resp.StatusCode != http.StatusOK {
		return nil, xerrors.Errorf("%s returned status %d: %w", repoURL, resp.StatusCode, ErrProtocol)
	}

	r := pktline.NewReader(resp.Body)

	// The first pkt-line is the service announcement
	// ("# service=git-upload-pack\n"), followed by a flush-pkt.
	first, err := r.ReadLine()
	if err != nil {
		return nil, xerrors.Errorf("could not read service announcement: %w", err)
	}
	if !strings.HasPrefix(first, "# service=") {
		return nil, xerrors.Errorf("unexpected first line %q: %w", first, ErrProtocol)
	}
	if _, err := r.ReadPacket(); !errors.Is(err, pktline.FlushPkt) {
		return nil, xerrors.Errorf("expected flush-pkt after service announcement: %w", ErrProtocol)
	}

	adv := &Advertisement{Refs: map[string]ginternals.Oid{}}
	first = ""
	for {
		line, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, pktline.FlushPkt) {
				break
			}
			return nil, xerrors.Errorf("could not read ref advertisement: %w", err)
		}

		// The very first ref line carries a NUL-separated list of
		// server capabilities we don't need.
		if idx := strings.IndexByte(line, 0); idx != -1 {
			line = line[:idx]
		}
		line = strings.TrimSuffix(line, "\n")

		id, name, ok := strings.Cut(line, " ")
		if !ok {
			return nil, xerrors.Errorf("malformed ref line %q: %w", line, ErrProtocol)
		}
		oid, err := ginternals.NewOidFromString(id)
		if err != nil {
			return nil, xerrors.Errorf("malformed ref id %q: %w", id, err)
		}
		adv.Refs[name] = oid
	}

	head, ok := adv.Refs["HEAD"]
	if !ok {
		return nil, xerrors.Errorf("remote advertised no HEAD: %w", ErrProtocol)
	}
	adv.Head = head

	return adv, nil
}

// UploadPack requests the packfile containing everything reachable
// from want, and returns its demultiplexed bytes (progress messages
// are discarded).
func UploadPack(client *http.Client, repoURL string, want ginternals.Oid) (io.Reader, error) {
	body := new(bytes.Buffer)
	pw := pktline.NewWriter(body)
	if err := pw.WriteString(fmt.Sprintf("want %s multi_ack_detailed side-band-64k thin-pack ofs-delta\n", want.String())); err != nil {
		return nil, xerrors.Errorf("could not build want line: %w", err)
	}
	if err := pw.WriteFlush(); err != nil {
		return nil, xerrors.Errorf("could not write flush: %w", err)
	}
	if err := pw.WriteString("done\n"); err != nil {
		return nil, xerrors.Errorf("could not write done line: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, repoURL+"/"+uploadPackService, body)
	if err != nil {
		return nil, xerrors.Errorf("could not build upload-pack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-"+uploadPackService+"-request")

	resp, err := client.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("could not reach %s: %w", repoURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best effort, we already have what we need

	if resp.StatusCode != http.StatusOK {
		return nil, xerrors.Errorf("%s returned status %d: %w", repoURL, resp.StatusCode, ErrProtocol)
	}

	pack := new(bytes.Buffer)
	if err := pktline.DemuxSideband(resp.Body, pack, io.Discard); err != nil {
		return nil, xerrors.Errorf("could not demultiplex upload-pack response: %w", err)
	}
	return pack, nil
}
