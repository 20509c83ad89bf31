package core

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// ComputeCatalogHash computes a deterministic hash of the catalog.
// It is used by the solver (to attest which problem was solved) and by
// validation (to check the attested problem matches the one in hand).
//
// Formula: SHA256("units=" + num_units + ";" + per bidder
// "b" + id + ":" + per bid "(" + id + "," + value + "," + units joined by "," + ")" + ";")
//
// Units are hashed in the order they appear in the bid.
func ComputeCatalogHash(c *Catalog) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "units=%d;", c.NumUnits)
	for _, bidder := range c.Bidders {
		fmt.Fprintf(&sb, "b%d:", bidder.ID)
		for _, bid := range bidder.Bids {
			fmt.Fprintf(&sb, "(%d,%d,%s)", bid.ID, bid.Value, joinInts(bid.Units))
		}
		sb.WriteString(";")
	}
	hash := sha256.Sum256([]byte(sb.String()))
	return fmt.Sprintf("%x", hash)
}

// ComputeAllocationHash computes the hash of a selection.
// This is used by both the solver (to generate hashes) and validation (to verify hashes).
//
// Formula: SHA256(nonce + "|" + choices joined by ",")
// where each choice is the bid index or "none".
func ComputeAllocationHash(choices []Choice, nonce string) string {
	parts := make([]string, len(choices))
	for i, choice := range choices {
		parts[i] = choice.String()
	}
	data := nonce + "|" + strings.Join(parts, ",")
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ",")
}
