package company

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Biome Makers", "BIOME MAKERS"},
		{"biome makers, inc.", "BIOME MAKERS"},
		{"  Biome   Makers Inc ", "BIOME MAKERS"},
		{"Pivot Bio, L.L.C.", "PIVOT BIO"},
		{"Smith & Sons Co., Ltd.", "SMITH AND SONS"},
		{"Agroécologie S.A.", "AGROECOLOGIE"},
		{"Müller GmbH", "MULLER"},
		{"Indigo-Carbon", "INDIGO CARBON"},
		{"Indigo Ag", "INDIGO"},
		{"O'Brien's Soil", "OBRIENS SOIL"},
		{"Co", "CO"},
		{"Inc", "INC"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.BiomeMakers.com/about", "biomemakers.com"},
		{"biomemakers.com", "biomemakers.com"},
		{"http://pivotbio.com:8080/", "pivotbio.com"},
		{"www.indigoag.com", "indigoag.com"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDomain(tt.in), tt.in)
	}
}

func TestSameWebsite(t *testing.T) {
	assert.True(t, SameWebsite("https://biomemakers.com", "www.biomemakers.com/"))
	assert.False(t, SameWebsite("https://biomemakers.com", "https://pivotbio.com"))
	assert.False(t, SameWebsite("", ""))
}

func TestIdentifyingDomain(t *testing.T) {
	assert.Equal(t, "biomemakers.com", identifyingDomain("https://biomemakers.com"))
	assert.Empty(t, identifyingDomain("https://www.linkedin.com/company/biome-makers"))
	assert.Empty(t, identifyingDomain("localhost"))
}
