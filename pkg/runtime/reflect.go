package runtime

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ReflectionHint supplies what SPIR-V reflection cannot infer on its own:
// the caller already knows the entry point name and stage, so this module
// doesn't attempt to recover either from the bytecode. Grounded on
// original_source/include/vuk/ir/IR.hpp's shader_fn Type, which records a
// shader as an opaque pointer plus argument/return types and nothing more —
// confirming that detailed reflection is a front-end concern this runtime
// only needs a record of, not a parser for.
type ReflectionHint struct {
	EntryPoint string
	Stage      vk.ShaderStageFlagBits
}

// DescriptorBindingReflection is one row of a shader's descriptor layout as
// the caller supplies it to Reflect alongside the SPIR-V words.
type DescriptorBindingReflection struct {
	Set     uint32
	Binding uint32
	Type    vk.DescriptorType
	Count   uint32
	Stages  vk.ShaderStageFlags
}

// PushConstantRangeReflection is one push-constant range the shader reads.
type PushConstantRangeReflection struct {
	Offset uint32
	Size   uint32
	Stages vk.ShaderStageFlags
}

// VertexAttributeReflection is one vertex-shader input location.
type VertexAttributeReflection struct {
	Location uint32
	Format   vk.Format
}

// SpecConstantReflection is one specialization constant the shader
// declares, keyed by its constant ID.
type SpecConstantReflection struct {
	ConstantID uint32
	Size       uint32
}

// ShaderReflection is the record SPIR-V ingest produces: enough to build a
// descriptor set layout, a push-constant range table and a vertex input
// state, without this module needing to understand SPIR-V's instruction
// encoding beyond locating the LocalSize execution mode.
type ShaderReflection struct {
	EntryPoint   string
	Stage        vk.ShaderStageFlagBits
	Bindings     []DescriptorBindingReflection
	PushConstants []PushConstantRangeReflection
	VertexInputs []VertexAttributeReflection
	SpecConstants []SpecConstantReflection
	LocalSize    [3]uint32
}

// Reflect builds a ShaderReflection from SPIR-V words and a caller-supplied
// hint. Full SPIR-V instruction decoding is out of scope (spec.md §6.2);
// this checks the magic number, scans the instruction stream for an
// OpExecutionMode LocalSize declaration, and otherwise defers entirely to
// the hint and to bindings the caller already knows from its own shader
// metadata.
func Reflect(words []uint32, hint ReflectionHint, bindings []DescriptorBindingReflection, pushConstants []PushConstantRangeReflection, vertexInputs []VertexAttributeReflection, specConstants []SpecConstantReflection) (*ShaderReflection, error) {
	if len(words) < 5 || words[0] != spirvMagic {
		return nil, errors.Errorf("vuk: %q is not a well-formed SPIR-V module", hint.Path())
	}
	r := &ShaderReflection{
		EntryPoint:    hint.EntryPoint,
		Stage:         hint.Stage,
		Bindings:      bindings,
		PushConstants: pushConstants,
		VertexInputs:  vertexInputs,
		SpecConstants: specConstants,
	}
	r.LocalSize = localSizeFromExecutionModes(words)
	return r, nil
}

const spirvMagic = 0x07230203

// Path lets ReflectionHint participate in error messages without this
// module owning a full shader-source identity type.
func (h ReflectionHint) Path() string { return h.EntryPoint }

// localSizeFromExecutionModes scans for OpExecutionMode LocalSize (opcode
// 16, mode 17 per the SPIR-V spec) and extracts its three operands. Returns
// the zero value if the module has none (e.g. a graphics-stage shader).
func localSizeFromExecutionModes(words []uint32) [3]uint32 {
	const opExecutionMode = 16
	const localSizeMode = 17
	i := 5
	for i < len(words) {
		instr := words[i]
		wordCount := int(instr >> 16)
		opcode := instr & 0xffff
		if wordCount == 0 || i+wordCount > len(words) {
			break
		}
		if opcode == opExecutionMode && wordCount >= 6 && words[i+2] == localSizeMode {
			return [3]uint32{words[i+3], words[i+4], words[i+5]}
		}
		i += wordCount
	}
	return [3]uint32{}
}
