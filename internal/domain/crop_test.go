package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCropType(t *testing.T) {
	cases := map[string]CropType{
		"Rice":          CropRice,
		"Paddy (Uma)":   CropRice,
		"Coconut palm":  CropCoconut,
		"Nendran Banana": CropBanana,
		"plantain":      CropBanana,
		"Black Pepper":  CropPepper,
		"Tomato":        CropVegetable,
		"brinjal":       CropVegetable,
		"Tapioca":       CropGeneric,
		"":              CropGeneric,
	}
	for name, want := range cases {
		assert.Equal(t, want, NormalizeCropType(name), "name %q", name)
	}
}

func TestDaysFromPlanting(t *testing.T) {
	now := time.Now()
	crop := CropData{PlantingDate: now.AddDate(0, 0, -30)}
	assert.Equal(t, 30, crop.DaysFromPlanting(now))
}

func TestRegionKey(t *testing.T) {
	p := FarmerProfile{Location: FarmLocation{District: "Thrissur", Taluk: "Chalakudy"}}
	assert.Equal(t, "Thrissur_Chalakudy", p.RegionKey())
}

func TestInsightKey(t *testing.T) {
	assert.Equal(t, "rice_Thrissur_Chalakudy", InsightKey(CropRice, "Thrissur_Chalakudy"))
}
