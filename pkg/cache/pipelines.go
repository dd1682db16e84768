package cache

import vk "github.com/vulkan-go/vulkan"

// GraphicsPipelineCache builds and caches vk.Pipeline handles keyed by
// GraphicsPipelineKey, evicting by frame-LRU like every other Cache — but
// also releases a key's overflow payload (if any) on eviction, since that
// payload is only kept alive for as long as the key it belongs to.
type GraphicsPipelineCache struct {
	*Cache[GraphicsPipelineKey, vk.Pipeline]
	dev vk.Device
}

// NewGraphicsPipelineCache constructs a cache that builds pipelines via
// build (normally a closure over the owning gfx.CommandBuffer/runtime that
// knows how to expand a GraphicsPipelineKey back into a full
// vk.GraphicsPipelineCreateInfo, including its layout and render pass).
func NewGraphicsPipelineCache(dev vk.Device, build Create[GraphicsPipelineKey, vk.Pipeline]) *GraphicsPipelineCache {
	c := &GraphicsPipelineCache{dev: dev}
	c.Cache = New(build, func(p vk.Pipeline) {
		vk.DestroyPipeline(dev, p, nil)
	})
	return c
}

// Collect evicts stale pipelines and releases their overflow payloads.
func (c *GraphicsPipelineCache) Collect(now, threshold uint64) int {
	c.mu.Lock()
	var toRelease []GraphicsPipelineKey
	for k, e := range c.entries {
		if now < e.lastUseFrame || now-e.lastUseFrame <= threshold {
			continue
		}
		toRelease = append(toRelease, k)
	}
	c.mu.Unlock()

	evicted := c.Cache.Collect(now, threshold)
	for _, k := range toRelease {
		ReleaseOverflow(k)
	}
	return evicted
}

// ComputePipelineKey is the comparable create_info_t<ComputePipeline> key:
// a compute pipeline has exactly one stage, so no SBO/overflow split is
// needed the way GraphicsPipelineKey requires one.
type ComputePipelineKey struct {
	Stage  StageKey
	Layout vk.PipelineLayout
}

// ComputePipelineCache caches vk.Pipeline handles for compute pipelines.
type ComputePipelineCache struct {
	*Cache[ComputePipelineKey, vk.Pipeline]
}

// NewComputePipelineCache constructs a compute pipeline cache.
func NewComputePipelineCache(dev vk.Device, build Create[ComputePipelineKey, vk.Pipeline]) *ComputePipelineCache {
	return &ComputePipelineCache{New(build, func(p vk.Pipeline) {
		vk.DestroyPipeline(dev, p, nil)
	})}
}
