package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const apiTeamPath = "/team/suppliers"

// RosterMember is a supplier known to the platform, keyed by the platform's own id.
type RosterMember struct {
	ExternalID      string   `json:"id" mapstructure:"id"`
	Name            string   `json:"name" mapstructure:"name"`
	Email           string   `json:"email" mapstructure:"email"`
	SupplierType    string   `json:"supplier_type" mapstructure:"supplier_type"`
	Languages       []string `json:"languages" mapstructure:"languages"`
	CompletedUnits  int      `json:"completed_units" mapstructure:"completed_units"`
	MatchedVendorID string   `json:"matched_vendor_id,omitempty" mapstructure:"matched_vendor_id"`
}

type Roster struct {
	Items []*RosterMember
}

// TeamRoster fetches every supplier on the team.
func (c *Client) TeamRoster(ctx context.Context) (*Roster, error) {
	items, err := c.GetItems(ctx, fmt.Sprintf("%s%s", c.APIURL, apiTeamPath), nil)
	if err != nil {
		return nil, fmt.Errorf("fetching team roster: %w", err)
	}

	var members []*RosterMember
	if err := decodeItems(items, &members); err != nil {
		return nil, fmt.Errorf("decoding team roster: %w", err)
	}

	return &Roster{Items: members}, nil
}

func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Items)
}

// FindByExternalID looks a member up by the platform id.
func (r *Roster) FindByExternalID(id string) *RosterMember {
	return r.find(func(m *RosterMember) string { return m.ExternalID }, id)
}

func (r *Roster) FindByEmail(email string) *RosterMember {
	return r.find(func(m *RosterMember) string { return m.Email }, email)
}

func (r *Roster) FindByName(name string) *RosterMember {
	return r.find(func(m *RosterMember) string { return m.Name }, name)
}

// FindByVendorID returns the member the platform already linked to vendorID.
func (r *Roster) FindByVendorID(vendorID string) *RosterMember {
	if vendorID == "" || r == nil {
		return nil
	}
	for _, m := range r.Items {
		if m.MatchedVendorID == vendorID {
			return m
		}
	}
	return nil
}

func (r *Roster) find(key func(*RosterMember) string, value string) *RosterMember {
	value = strings.TrimSpace(value)
	if value == "" || r == nil {
		return nil
	}
	for _, m := range r.Items {
		if k := strings.TrimSpace(key(m)); k != "" && strings.EqualFold(k, value) {
			return m
		}
	}
	return nil
}

func decodeItems(items []Item, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(items)
}
