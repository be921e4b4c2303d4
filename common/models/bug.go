package models

import "time"

// Bug is a bug tracker entry: the upstream record a patch fix is
// validated against before it can join a fix list.
type Bug struct {
	ID          int    `db:"bug_id" json:"id"`
	Name        string `db:"bug_name" json:"name,omitempty"`
	Status      string `db:"status" json:"status,omitempty"`
	FixType     string `db:"fix_type" json:"fix_type,omitempty"`
	SubType     string `db:"sub_type" json:"sub_type,omitempty"`
	ProductArea string `db:"product_area" json:"product_area,omitempty"`

	// Release the resolution was checked into
	Release string `db:"release" json:"release,omitempty"`

	ResolveDate *time.Time `db:"resolve_date" json:"resolve_date,omitempty"`
	Description string     `db:"description" json:"description,omitempty"`

	CheckIns []CheckIn `json:"checkins,omitempty"`
}

// IsResolved reports whether the tracker has recorded a resolution date.
func (b *Bug) IsResolved() bool {
	return b.ResolveDate != nil
}

// Fix converts the tracker entry into a patch fix.
func (b *Bug) Fix() Fix {
	return Fix{
		BugID:       b.ID,
		BugName:     b.Name,
		Status:      b.Status,
		FixType:     b.FixType,
		SubType:     b.SubType,
		ProductArea: b.ProductArea,
		Release:     b.Release,
		ResolveDate: b.ResolveDate,
		Description: b.Description,
		Changelists: append([]CheckIn(nil), b.CheckIns...),
	}
}
