// Package loader reads bid catalogs from the whitespace-separated text format:
//
//	<unused> <num_units> <num_bids> <num_bidders>
//	per bidder: <bidder_id> <bid_count>
//	  per bid: <bid_id> <unit_count> <value> <unit_id>...
//
// Unit identifiers are 1-based.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cloudx-io/openalloc/core"
)

// LoadFile reads and parses a catalog file. Open and read failures are
// returned as *LoadError, inconsistent content as *MalformedRecordError.
func LoadFile(path string) (*core.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	catalog, err := Parse(f)
	if err != nil {
		var malformed *MalformedRecordError
		if errors.As(err, &malformed) {
			return nil, err
		}
		return nil, &LoadError{Path: path, Err: err}
	}
	return catalog, nil
}

// Parse reads one catalog record from r.
func Parse(r io.Reader) (*core.Catalog, error) {
	tr := newTokenReader(r)

	if _, err := tr.next("header"); err != nil {
		return nil, err
	}
	numUnits, err := tr.nextCount("unit count")
	if err != nil {
		return nil, err
	}
	declaredBids, err := tr.nextCount("bid count")
	if err != nil {
		return nil, err
	}
	numBidders, err := tr.nextCount("bidder count")
	if err != nil {
		return nil, err
	}

	// Counts come from the file, so slices grow as records are read
	// instead of being sized up front.
	catalog := &core.Catalog{NumUnits: numUnits}
	for i := 0; i < numBidders; i++ {
		bidder, err := parseBidder(tr, numUnits)
		if err != nil {
			return nil, err
		}
		catalog.Bidders = append(catalog.Bidders, bidder)
	}

	if got := catalog.TotalBids(); got != declaredBids {
		return nil, &MalformedRecordError{
			Token:  3,
			Field:  "bid count",
			Reason: fmt.Sprintf("header declares %d bids, bidders list %d", declaredBids, got),
		}
	}

	if err := tr.expectEOF(); err != nil {
		return nil, err
	}

	return catalog, nil
}

func parseBidder(tr *tokenReader, numUnits int) (core.Bidder, error) {
	id, err := tr.next("bidder id")
	if err != nil {
		return core.Bidder{}, err
	}
	bidCount, err := tr.nextCount("bidder bid count")
	if err != nil {
		return core.Bidder{}, err
	}

	bidder := core.Bidder{ID: id}
	for j := 0; j < bidCount; j++ {
		bid, err := parseBid(tr, numUnits)
		if err != nil {
			return core.Bidder{}, err
		}
		bidder.Bids = append(bidder.Bids, bid)
	}
	return bidder, nil
}

func parseBid(tr *tokenReader, numUnits int) (core.Bid, error) {
	id, err := tr.next("bid id")
	if err != nil {
		return core.Bid{}, err
	}
	unitCount, err := tr.nextCount("bid unit count")
	if err != nil {
		return core.Bid{}, err
	}
	value, err := tr.nextCount("bid value")
	if err != nil {
		return core.Bid{}, err
	}

	bid := core.Bid{ID: id, Value: int64(value)}
	seen := make(map[int]bool)
	for k := 0; k < unitCount; k++ {
		u, err := tr.next("unit id")
		if err != nil {
			return core.Bid{}, err
		}
		if u < 1 || u > numUnits {
			return core.Bid{}, tr.malformed("unit id", fmt.Sprintf("unit %d outside 1..%d", u, numUnits))
		}
		if seen[u] {
			return core.Bid{}, tr.malformed("unit id", fmt.Sprintf("unit %d listed twice in bid %d", u, id))
		}
		seen[u] = true
		bid.Units = append(bid.Units, u)
	}
	return bid, nil
}

// tokenReader hands out integer tokens and remembers their position.
type tokenReader struct {
	scanner *bufio.Scanner
	pos     int
}

func newTokenReader(r io.Reader) *tokenReader {
	s := bufio.NewScanner(r)
	s.Split(bufio.ScanWords)
	return &tokenReader{scanner: s}
}

func (tr *tokenReader) malformed(field, reason string) *MalformedRecordError {
	return &MalformedRecordError{Token: tr.pos, Field: field, Reason: reason}
}

func (tr *tokenReader) next(field string) (int, error) {
	if !tr.scanner.Scan() {
		if err := tr.scanner.Err(); err != nil {
			return 0, fmt.Errorf("read %s: %w", field, err)
		}
		return 0, &MalformedRecordError{Token: tr.pos + 1, Field: field, Reason: "unexpected end of input"}
	}
	tr.pos++

	v, err := strconv.Atoi(tr.scanner.Text())
	if err != nil {
		return 0, tr.malformed(field, fmt.Sprintf("%q is not an integer", tr.scanner.Text()))
	}
	return v, nil
}

// nextCount reads a non-negative integer.
func (tr *tokenReader) nextCount(field string) (int, error) {
	v, err := tr.next(field)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, tr.malformed(field, fmt.Sprintf("negative value %d", v))
	}
	return v, nil
}

func (tr *tokenReader) expectEOF() error {
	if tr.scanner.Scan() {
		tr.pos++
		return tr.malformed("trailing data", fmt.Sprintf("unexpected token %q after last bidder", tr.scanner.Text()))
	}
	if err := tr.scanner.Err(); err != nil {
		return fmt.Errorf("read trailing data: %w", err)
	}
	return nil
}
