package swapchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestIntersectKeepsOnlySupported(t *testing.T) {
	got := intersect([]string{"a", "b", "c"}, []string{"b", "d"})
	assert.Equal(t, []string{"b"}, got)
}

func TestIntersectEmptyWantYieldsEmpty(t *testing.T) {
	got := intersect([]string{"a"}, nil)
	assert.Empty(t, got)
}

func TestPickCompositeAlphaPrefersOpaque(t *testing.T) {
	supported := vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit) | vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit)
	assert.Equal(t, vk.CompositeAlphaOpaqueBit, pickCompositeAlpha(supported))
}

func TestPickCompositeAlphaFallsBackWhenOpaqueUnsupported(t *testing.T) {
	supported := vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit)
	assert.Equal(t, vk.CompositeAlphaInheritBit, pickCompositeAlpha(supported))
}

func TestConfigExtentOrUsesCapsWhenDefined(t *testing.T) {
	cfg := Config{Width: 640, Height: 480}
	caps := vk.SurfaceCapabilities{CurrentExtent: vk.Extent2D{Width: 1920, Height: 1080}}
	got := cfg.extentOr(caps)
	assert.Equal(t, uint32(1920), got.Width)
	assert.Equal(t, uint32(1080), got.Height)
}

func TestConfigExtentOrFallsBackToConfig(t *testing.T) {
	cfg := Config{Width: 640, Height: 480}
	caps := vk.SurfaceCapabilities{CurrentExtent: vk.Extent2D{Width: vk.MaxUint32}}
	got := cfg.extentOr(caps)
	assert.Equal(t, uint32(640), got.Width)
	assert.Equal(t, uint32(480), got.Height)
}
