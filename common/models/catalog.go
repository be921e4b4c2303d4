package models

import "sort"

// ProductComponent is a purchasable component of a product version
type ProductComponent struct {
	ID          int    `db:"component_id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`
}

// ProductRelease is a shipped release of a product version
type ProductRelease struct {
	ID      int    `db:"release_id" json:"id"`
	Version string `db:"version" json:"version"`
	Status  string `db:"status" json:"status,omitempty"`
}

// ProductVersion groups the components and releases of one product version
type ProductVersion struct {
	ID          int    `db:"version_id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`

	components map[int]*ProductComponent
	releases   map[int]*ProductRelease
}

// AddComponent adds a component; an existing ID is replaced.
func (v *ProductVersion) AddComponent(c ProductComponent) {
	if v.components == nil {
		v.components = make(map[int]*ProductComponent)
	}
	copied := c
	v.components[c.ID] = &copied
}

// Component returns the component with the given ID, or nil.
func (v *ProductVersion) Component(id int) *ProductComponent {
	return v.components[id]
}

// Components returns the components ordered by ID.
func (v *ProductVersion) Components() []ProductComponent {
	out := make([]ProductComponent, 0, len(v.components))
	for _, c := range v.components {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddRelease adds a release; an existing ID is replaced.
func (v *ProductVersion) AddRelease(r ProductRelease) {
	if v.releases == nil {
		v.releases = make(map[int]*ProductRelease)
	}
	copied := r
	v.releases[r.ID] = &copied
}

// Release returns the release with the given ID, or nil.
func (v *ProductVersion) Release(id int) *ProductRelease {
	return v.releases[id]
}

// Releases returns the releases ordered by ID.
func (v *ProductVersion) Releases() []ProductRelease {
	out := make([]ProductRelease, 0, len(v.releases))
	for _, r := range v.releases {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// snapshot returns a deep copy whose component and release maps are
// independent of the receiver.
func (v *ProductVersion) snapshot() ProductVersion {
	out := ProductVersion{ID: v.ID, Name: v.Name, Description: v.Description}
	for _, c := range v.components {
		out.AddComponent(*c)
	}
	for _, r := range v.releases {
		out.AddRelease(*r)
	}
	return out
}

// merge copies components and releases from another version with the
// same ID without duplicating existing entries.
func (v *ProductVersion) merge(other *ProductVersion) {
	for id, c := range other.components {
		if _, ok := v.components[id]; !ok {
			v.AddComponent(*c)
		}
	}
	for id, r := range other.releases {
		if _, ok := v.releases[id]; !ok {
			v.AddRelease(*r)
		}
	}
}

// Product is a sellable product with its version hierarchy
type Product struct {
	ID          int    `db:"product_id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`

	versions map[int]*ProductVersion
}

// AddVersion adds a product version. Adding a version whose ID already
// exists merges its components and releases into the existing entry
// instead of duplicating it.
func (p *Product) AddVersion(version ProductVersion) {
	if p.versions == nil {
		p.versions = make(map[int]*ProductVersion)
	}
	if existing, ok := p.versions[version.ID]; ok {
		existing.merge(&version)
		return
	}
	copied := version.snapshot()
	p.versions[version.ID] = &copied
}

// AddVersions merges a list of versions into the product.
func (p *Product) AddVersions(versions []ProductVersion) {
	for _, v := range versions {
		p.AddVersion(v)
	}
}

// Version returns the version with the given ID, or nil.
func (p *Product) Version(id int) *ProductVersion {
	return p.versions[id]
}

// HasVersion reports whether the product contains the version ID.
func (p *Product) HasVersion(id int) bool {
	return p.Version(id) != nil
}

// Versions returns deep copies of the product versions ordered by ID.
// Mutating a returned version does not touch the product.
func (p *Product) Versions() []ProductVersion {
	out := make([]ProductVersion, 0, len(p.versions))
	for _, v := range p.versions {
		out = append(out, v.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
