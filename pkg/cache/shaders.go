package cache

import vk "github.com/vulkan-go/vulkan"

// ShaderModuleKey is the create_info_t<ShaderModule> key: SPIR-V words are
// hashed rather than kept as a comparable slice, since a shader's word
// count can be arbitrarily large and only its content (not identity)
// determines cache hits.
type ShaderModuleKey struct {
	WordHash uint64
	WordLen  int
}

// HashShaderWords folds a SPIR-V word stream into a ShaderModuleKey with a
// local multiply-and-rotate loop (it does not use vktypes' FNV-1a
// combiner), keeping the word count alongside the hash.
func HashShaderWords(words []uint32) ShaderModuleKey {
	var h uint64
	for _, w := range words {
		h ^= uint64(w) * 1099511628211
		h = (h << 1) | (h >> 63)
	}
	return ShaderModuleKey{WordHash: h, WordLen: len(words)}
}

// NewShaderModuleCache constructs an unbounded cache of vk.ShaderModule
// handles keyed by SPIR-V content hash (shader modules are small and
// reused constantly across pipelines, so they never expire on their own —
// §4.2 expansion's unbounded-lifetime rule).
func NewShaderModuleCache(dev vk.Device, build Create[ShaderModuleKey, vk.ShaderModule]) Unbounded[ShaderModuleKey, vk.ShaderModule] {
	return NewUnbounded(build, func(m vk.ShaderModule) {
		vk.DestroyShaderModule(dev, m, nil)
	})
}
