package vktypes

import vk "github.com/vulkan-go/vulkan"

// Access enumerates the ~40 named accesses a CALL argument can be imbued
// with (spec.md §3.4). Each resolves to a ResourceUse via ToUse.
type Access uint32

const (
	AccessNone Access = iota
	AccessClear
	AccessColorRW
	AccessColorRead
	AccessColorWrite
	AccessColorResolveRead
	AccessColorResolveWrite
	AccessDepthStencilRW
	AccessDepthStencilRead
	AccessDepthStencilWrite
	AccessDepthStencilResolveRead
	AccessDepthStencilResolveWrite
	AccessFragmentSampled
	AccessFragmentRead
	AccessFragmentWrite
	AccessFragmentRW
	AccessComputeSampled
	AccessComputeRead
	AccessComputeWrite
	AccessComputeRW
	AccessTransferRead
	AccessTransferWrite
	AccessHostRead
	AccessHostWrite
	AccessHostRW
	AccessMemoryRead
	AccessMemoryWrite
	AccessMemoryRW
	AccessVertexSampled
	AccessVertexRead
	AccessIndexRead
	AccessIndirectRead
	AccessAccelerationStructureRead
	AccessAccelerationStructureWrite
	AccessAccelerationStructureBuildRead
	AccessAccelerationStructureBuildWrite
	AccessRayTracingSampled
	AccessRayTracingRead
	AccessRayTracingWrite
	AccessRayTracingRW
	AccessPresent
)

// ResourceUse is the materialized barrier parameter set derived from an
// Access (spec.md §3.4).
type ResourceUse struct {
	Stages vk.PipelineStageFlags
	Access vk.AccessFlags
	Layout vk.ImageLayout
}

var accessTable = map[Access]ResourceUse{
	AccessNone:     {0, 0, vk.ImageLayoutUndefined},
	AccessClear:    {vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.AccessFlags(vk.AccessTransferWriteBit), vk.ImageLayoutTransferDstOptimal},
	AccessColorRW: {
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		vk.ImageLayoutColorAttachmentOptimal,
	},
	AccessColorRead:  {vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), vk.AccessFlags(vk.AccessColorAttachmentReadBit), vk.ImageLayoutColorAttachmentOptimal},
	AccessColorWrite: {vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), vk.AccessFlags(vk.AccessColorAttachmentWriteBit), vk.ImageLayoutColorAttachmentOptimal},
	AccessColorResolveRead:  {vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), vk.AccessFlags(vk.AccessColorAttachmentReadBit), vk.ImageLayoutColorAttachmentOptimal},
	AccessColorResolveWrite: {vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), vk.AccessFlags(vk.AccessColorAttachmentWriteBit), vk.ImageLayoutColorAttachmentOptimal},
	AccessDepthStencilRW: {
		vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit) | vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
		vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit) | vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
		vk.ImageLayoutDepthStencilAttachmentOptimal,
	},
	AccessDepthStencilRead:  {vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit), vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit), vk.ImageLayoutDepthStencilReadOnlyOptimal},
	AccessDepthStencilWrite: {vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit), vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit), vk.ImageLayoutDepthStencilAttachmentOptimal},
	AccessDepthStencilResolveRead:  {vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit), vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit), vk.ImageLayoutDepthStencilReadOnlyOptimal},
	AccessDepthStencilResolveWrite: {vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit), vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit), vk.ImageLayoutDepthStencilAttachmentOptimal},
	AccessFragmentSampled:  {vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), vk.AccessFlags(vk.AccessShaderReadBit), vk.ImageLayoutShaderReadOnlyOptimal},
	AccessFragmentRead:      {vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), vk.AccessFlags(vk.AccessShaderReadBit), vk.ImageLayoutGeneral},
	AccessFragmentWrite:     {vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), vk.AccessFlags(vk.AccessShaderWriteBit), vk.ImageLayoutGeneral},
	AccessFragmentRW:        {vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), vk.AccessFlags(vk.AccessShaderReadBit) | vk.AccessFlags(vk.AccessShaderWriteBit), vk.ImageLayoutGeneral},
	AccessComputeSampled: {vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit), vk.AccessFlags(vk.AccessShaderReadBit), vk.ImageLayoutShaderReadOnlyOptimal},
	AccessComputeRead:    {vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit), vk.AccessFlags(vk.AccessShaderReadBit), vk.ImageLayoutGeneral},
	AccessComputeWrite:   {vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit), vk.AccessFlags(vk.AccessShaderWriteBit), vk.ImageLayoutGeneral},
	AccessComputeRW:      {vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit), vk.AccessFlags(vk.AccessShaderReadBit) | vk.AccessFlags(vk.AccessShaderWriteBit), vk.ImageLayoutGeneral},
	AccessTransferRead:  {vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.AccessFlags(vk.AccessTransferReadBit), vk.ImageLayoutTransferSrcOptimal},
	AccessTransferWrite: {vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.AccessFlags(vk.AccessTransferWriteBit), vk.ImageLayoutTransferDstOptimal},
	AccessHostRead:  {vk.PipelineStageFlags(vk.PipelineStageHostBit), vk.AccessFlags(vk.AccessHostReadBit), vk.ImageLayoutGeneral},
	AccessHostWrite: {vk.PipelineStageFlags(vk.PipelineStageHostBit), vk.AccessFlags(vk.AccessHostWriteBit), vk.ImageLayoutGeneral},
	AccessHostRW:    {vk.PipelineStageFlags(vk.PipelineStageHostBit), vk.AccessFlags(vk.AccessHostReadBit) | vk.AccessFlags(vk.AccessHostWriteBit), vk.ImageLayoutGeneral},
	AccessMemoryRead:  {vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit), vk.AccessFlags(vk.AccessMemoryReadBit), vk.ImageLayoutGeneral},
	AccessMemoryWrite: {vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit), vk.AccessFlags(vk.AccessMemoryWriteBit), vk.ImageLayoutGeneral},
	AccessMemoryRW:    {vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit), vk.AccessFlags(vk.AccessMemoryReadBit) | vk.AccessFlags(vk.AccessMemoryWriteBit), vk.ImageLayoutGeneral},
	AccessVertexSampled: {vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit), vk.AccessFlags(vk.AccessShaderReadBit), vk.ImageLayoutShaderReadOnlyOptimal},
	AccessVertexRead:    {vk.PipelineStageFlags(vk.PipelineStageVertexInputBit), vk.AccessFlags(vk.AccessVertexAttributeReadBit), vk.ImageLayoutUndefined},
	AccessIndexRead:     {vk.PipelineStageFlags(vk.PipelineStageVertexInputBit), vk.AccessFlags(vk.AccessIndexReadBit), vk.ImageLayoutUndefined},
	AccessIndirectRead:  {vk.PipelineStageFlags(vk.PipelineStageDrawIndirectBit), vk.AccessFlags(vk.AccessIndirectCommandReadBit), vk.ImageLayoutUndefined},
	AccessRayTracingSampled: {vk.PipelineStageFlags(vk.PipelineStageRayTracingShaderBit), vk.AccessFlags(vk.AccessShaderReadBit), vk.ImageLayoutShaderReadOnlyOptimal},
	AccessRayTracingRead:    {vk.PipelineStageFlags(vk.PipelineStageRayTracingShaderBit), vk.AccessFlags(vk.AccessShaderReadBit), vk.ImageLayoutGeneral},
	AccessRayTracingWrite:   {vk.PipelineStageFlags(vk.PipelineStageRayTracingShaderBit), vk.AccessFlags(vk.AccessShaderWriteBit), vk.ImageLayoutGeneral},
	AccessRayTracingRW:      {vk.PipelineStageFlags(vk.PipelineStageRayTracingShaderBit), vk.AccessFlags(vk.AccessShaderReadBit) | vk.AccessFlags(vk.AccessShaderWriteBit), vk.ImageLayoutGeneral},
	AccessPresent: {vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit), 0, vk.ImageLayoutPresentSrc},
}

// ToUse resolves a named Access into its materialized barrier parameters.
func ToUse(a Access) ResourceUse {
	if u, ok := accessTable[a]; ok {
		return u
	}
	return accessTable[AccessNone]
}

// IsWriteAccess reports whether a pass using this Access writes the resource.
func IsWriteAccess(a Access) bool {
	switch a {
	case AccessColorRW, AccessColorWrite, AccessColorResolveWrite,
		AccessDepthStencilRW, AccessDepthStencilWrite, AccessDepthStencilResolveWrite,
		AccessFragmentWrite, AccessFragmentRW, AccessComputeWrite, AccessComputeRW,
		AccessTransferWrite, AccessHostWrite, AccessHostRW, AccessMemoryWrite, AccessMemoryRW,
		AccessAccelerationStructureWrite, AccessAccelerationStructureBuildWrite,
		AccessRayTracingWrite, AccessRayTracingRW, AccessClear:
		return true
	default:
		return false
	}
}

// IsReadAccess reports whether a pass using this Access reads the resource.
func IsReadAccess(a Access) bool {
	switch a {
	case AccessColorRW, AccessColorRead, AccessColorResolveRead,
		AccessDepthStencilRW, AccessDepthStencilRead, AccessDepthStencilResolveRead,
		AccessFragmentSampled, AccessFragmentRead, AccessFragmentRW,
		AccessComputeSampled, AccessComputeRead, AccessComputeRW,
		AccessTransferRead, AccessHostRead, AccessHostRW, AccessMemoryRead, AccessMemoryRW,
		AccessVertexSampled, AccessVertexRead, AccessIndexRead, AccessIndirectRead,
		AccessAccelerationStructureRead, AccessAccelerationStructureBuildRead,
		AccessRayTracingSampled, AccessRayTracingRead, AccessRayTracingRW:
		return true
	default:
		return false
	}
}

// IsFramebufferAttachment reports whether Access targets a render-pass
// attachment (used to drive reify-inference's attachment-group propagation).
func IsFramebufferAttachment(a Access) bool {
	switch a {
	case AccessColorRW, AccessColorRead, AccessColorWrite, AccessColorResolveRead, AccessColorResolveWrite,
		AccessDepthStencilRW, AccessDepthStencilRead, AccessDepthStencilWrite,
		AccessDepthStencilResolveRead, AccessDepthStencilResolveWrite:
		return true
	default:
		return false
	}
}

// IsReadonlyAccess reports whether Access never writes.
func IsReadonlyAccess(a Access) bool { return IsReadAccess(a) && !IsWriteAccess(a) }

// IsStorageAccess reports whether Access targets a storage image/buffer
// binding (general layout, read-write capable shader binding).
func IsStorageAccess(a Access) bool {
	switch a {
	case AccessComputeRead, AccessComputeWrite, AccessComputeRW,
		AccessFragmentRead, AccessFragmentWrite, AccessFragmentRW,
		AccessRayTracingRead, AccessRayTracingWrite, AccessRayTracingRW:
		return true
	default:
		return false
	}
}

// IsTransferAccess reports whether Access is a transfer-stage access.
func IsTransferAccess(a Access) bool {
	return a == AccessTransferRead || a == AccessTransferWrite || a == AccessClear
}
