package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddVersionMergesExistingID(t *testing.T) {
	var v1 ProductVersion
	v1.ID = 1
	v1.AddComponent(ProductComponent{ID: 10, Name: "core"})
	v1.AddRelease(ProductRelease{ID: 100, Version: "5.3.3.1"})

	var v1again ProductVersion
	v1again.ID = 1
	v1again.AddComponent(ProductComponent{ID: 10, Name: "core-renamed"})
	v1again.AddComponent(ProductComponent{ID: 11, Name: "reports"})
	v1again.AddRelease(ProductRelease{ID: 101, Version: "5.3.3.2"})

	var product Product
	product.AddVersion(v1)
	product.AddVersion(v1again)

	require.Len(t, product.Versions(), 1)

	merged := product.Version(1)
	require.NotNil(t, merged)
	assert.Len(t, merged.Components(), 2)
	assert.Len(t, merged.Releases(), 2)
	assert.Equal(t, "core", merged.Component(10).Name,
		"merging never overwrites an existing component")
}

func TestProductVersionAccessorsOrdered(t *testing.T) {
	var v ProductVersion
	v.AddRelease(ProductRelease{ID: 3})
	v.AddRelease(ProductRelease{ID: 1})
	v.AddRelease(ProductRelease{ID: 2})

	releases := v.Releases()
	require.Len(t, releases, 3)
	assert.Equal(t, 1, releases[0].ID)
	assert.Equal(t, 3, releases[2].ID)
}

func TestVersionsReturnsIndependentCopies(t *testing.T) {
	var v ProductVersion
	v.ID = 1
	v.AddComponent(ProductComponent{ID: 10, Name: "core"})
	v.AddRelease(ProductRelease{ID: 100, Version: "5.3.3.1"})

	var product Product
	product.AddVersion(v)

	versions := product.Versions()
	require.Len(t, versions, 1)
	versions[0].AddComponent(ProductComponent{ID: 99, Name: "rogue"})
	versions[0].AddRelease(ProductRelease{ID: 999})

	stored := product.Version(1)
	require.NotNil(t, stored)
	assert.Nil(t, stored.Component(99), "mutating a returned copy must not touch the product")
	assert.Nil(t, stored.Release(999))
	assert.Len(t, stored.Components(), 1)
}

func TestHasVersion(t *testing.T) {
	var product Product
	product.AddVersions([]ProductVersion{{ID: 1}, {ID: 2}})

	assert.True(t, product.HasVersion(2))
	assert.False(t, product.HasVersion(9))
}
