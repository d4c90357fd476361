package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppleLayerBudget_Table(t *testing.T) {
	cases := []struct {
		chip    appleChip
		variant chipVariant
		want    uint32
	}{
		{chipM3, variantUltra, 99},
		{chipM3, variantMax, 99},
		{chipM3, variantPro, 60},
		{chipM3, variantBase, 35},
		{chipM2, variantUltra, 80},
		{chipM2, variantPro, 50},
		{chipM2, variantBase, 28},
		{chipM1, variantUltra, 65},
		{chipM1, variantPro, 45},
		{chipM1, variantBase, 25},
		{chipUnknown, variantBase, 20},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, appleLayerBudget(c.chip, c.variant))
	}
}

func TestDetectAppleChip(t *testing.T) {
	chip, variant := detectAppleChip("Apple M3 Max")
	assert.Equal(t, chipM3, chip)
	assert.Equal(t, variantMax, variant)

	chip, variant = detectAppleChip("Apple M1")
	assert.Equal(t, chipM1, chip)
	assert.Equal(t, variantBase, variant)

	chip, _ = detectAppleChip("Intel(R) Core(TM) i9")
	assert.Equal(t, chipUnknown, chip)
}

func TestNvidiaLayerBudget_Table(t *testing.T) {
	cases := []struct {
		vramMB int
		want   uint32
	}{
		{0, 8},
		{3999, 8},
		{4000, 20},
		{7999, 20},
		{8000, 28},
		{11999, 28},
		{12000, 35},
		{15999, 35},
		{16000, 45},
		{23999, 45},
		{24000, 60},
		{100000, 60},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, nvidiaLayerBudget(c.vramMB))
	}
}
