// Package reconcile cross-references resolved records against the external
// platform roster and sorts them into buckets.
package reconcile

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/linguaops/payrecon/internal/invoice"
	"github.com/linguaops/payrecon/internal/matching"
	"github.com/linguaops/payrecon/internal/platform"
)

type Bucket string

const (
	Matched                     Bucket = "matched"
	MissingFromExternalRoster   Bucket = "missingFromExternalRoster"
	MissingFromInternalRegistry Bucket = "missingFromInternalRegistry"
	UnmatchedEverywhere         Bucket = "unmatchedEverywhere"
)

// Buckets in order of how actionable they are.
var Buckets = []Bucket{Matched, MissingFromExternalRoster, MissingFromInternalRegistry, UnmatchedEverywhere}

// ParseBucket accepts a bucket name as printed by String.
func ParseBucket(s string) (Bucket, bool) {
	for _, b := range Buckets {
		if string(b) == s {
			return b, true
		}
	}
	return "", false
}

func (b Bucket) String() string { return string(b) }

// Warning tells the operator what a bucket needs before its records can be paid.
func (b Bucket) Warning() string {
	switch b {
	case MissingFromExternalRoster:
		return "cannot be paid until the vendor is invited to the payment platform"
	case MissingFromInternalRegistry:
		return "needs to be imported into the internal vendor registry"
	case UnmatchedEverywhere:
		return "unknown to both systems"
	}
	return ""
}

// Entry is one record with whatever each system knows about it.
type Entry struct {
	Record *invoice.Record
	Vendor *matching.Vendor
	Member *platform.RosterMember
}

// Group holds the entries of one bucket and their running total.
type Group struct {
	Bucket  Bucket
	Entries []Entry
	Total   decimal.Decimal
}

func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Entries)
}

func (g *Group) Records() invoice.Records {
	if g == nil {
		return nil
	}
	records := make(invoice.Records, 0, len(g.Entries))
	for _, e := range g.Entries {
		records = append(records, e.Record)
	}
	return records
}

func (g *Group) add(e Entry) {
	g.Entries = append(g.Entries, e)
	g.Total = g.Total.Add(e.Record.TotalCost)
}

type Summary struct {
	Records         int
	TotalAmount     decimal.Decimal
	MatchedAmount   decimal.Decimal
	UnmatchedAmount decimal.Decimal
	Counts          map[Bucket]int
}

type Result struct {
	Groups     map[Bucket]*Group
	Summary    Summary
	DefaultTab Bucket
}

// Group returns the group for b. It is never nil.
func (r *Result) Group(b Bucket) *Group {
	if g, ok := r.Groups[b]; ok {
		return g
	}
	return &Group{Bucket: b, Total: decimal.Zero}
}

// BucketOf returns the bucket holding record.
func (r *Result) BucketOf(record *invoice.Record) (Bucket, bool) {
	for _, b := range Buckets {
		for _, e := range r.Group(b).Entries {
			if e.Record == record {
				return b, true
			}
		}
	}
	return "", false
}

// Reconcile places every record in exactly one bucket.
//
// A resolved record is on the roster when a member is linked to its vendor, or
// when a member's id is the vendor's external supplier id. An unresolved record
// is looked up in the roster by id, email, then name, using the raw resource.
func Reconcile(records invoice.Records, vendors matching.Vendors, roster *platform.Roster, logger *zap.Logger) *Result {
	if logger == nil {
		logger = zap.NewNop()
	}

	result := &Result{Groups: make(map[Bucket]*Group, len(Buckets))}
	for _, b := range Buckets {
		result.Groups[b] = &Group{Bucket: b, Total: decimal.Zero}
	}

	for _, r := range records {
		entry := Entry{Record: r}
		if r.FreelancerMatched {
			entry.Vendor = vendors.FindByID(r.FreelancerID)
		}

		var bucket Bucket
		if entry.Vendor != nil {
			entry.Member = memberForVendor(roster, entry.Vendor)
			bucket = MissingFromExternalRoster
			if entry.Member != nil {
				bucket = Matched
			}
		} else {
			entry.Member = memberForResource(roster, r.Resource)
			bucket = UnmatchedEverywhere
			if entry.Member != nil {
				bucket = MissingFromInternalRegistry
			}
		}

		result.Groups[bucket].add(entry)
	}

	result.Summary = summarize(result)
	result.DefaultTab = defaultTab(result)

	logger.Info("records reconciled",
		zap.Int("records", result.Summary.Records),
		zap.Int(string(Matched), result.Summary.Counts[Matched]),
		zap.Int(string(MissingFromExternalRoster), result.Summary.Counts[MissingFromExternalRoster]),
		zap.Int(string(MissingFromInternalRegistry), result.Summary.Counts[MissingFromInternalRegistry]),
		zap.Int(string(UnmatchedEverywhere), result.Summary.Counts[UnmatchedEverywhere]),
		zap.String("total", result.Summary.TotalAmount.String()),
	)

	return result
}

func memberForVendor(roster *platform.Roster, v *matching.Vendor) *platform.RosterMember {
	if m := roster.FindByVendorID(v.ID); m != nil {
		return m
	}
	return roster.FindByExternalID(v.ExternalSupplierID)
}

func memberForResource(roster *platform.Roster, resource string) *platform.RosterMember {
	if m := roster.FindByExternalID(resource); m != nil {
		return m
	}
	if m := roster.FindByEmail(resource); m != nil {
		return m
	}
	return roster.FindByName(resource)
}

func summarize(result *Result) Summary {
	s := Summary{
		TotalAmount:   decimal.Zero,
		MatchedAmount: decimal.Zero,
		Counts:        make(map[Bucket]int, len(Buckets)),
	}
	for _, b := range Buckets {
		g := result.Groups[b]
		s.Counts[b] = g.Len()
		s.Records += g.Len()
		s.TotalAmount = s.TotalAmount.Add(g.Total)
	}
	s.MatchedAmount = result.Groups[Matched].Total
	s.UnmatchedAmount = s.TotalAmount.Sub(s.MatchedAmount)
	return s
}

// defaultTab is the first non-empty bucket, or Matched when all are empty.
func defaultTab(result *Result) Bucket {
	for _, b := range Buckets {
		if result.Groups[b].Len() > 0 {
			return b
		}
	}
	return Matched
}
