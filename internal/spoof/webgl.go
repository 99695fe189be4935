package spoof

// webglExtensions is the fixed extension list returned for extension-list
// queries. It contains only extensions common across real desktop GPUs so
// the spoofed set is plausible while revealing nothing about the actual
// hardware. Defined once; never derived from the machine.
var webglExtensions = []string{
	"ANGLE_instanced_arrays",
	"EXT_blend_minmax",
	"EXT_color_buffer_half_float",
	"EXT_frag_depth",
	"EXT_sRGB",
	"EXT_shader_texture_lod",
	"EXT_texture_filter_anisotropic",
	"OES_element_index_uint",
	"OES_standard_derivatives",
	"OES_texture_float",
	"OES_texture_half_float",
	"OES_texture_half_float_linear",
	"OES_vertex_array_object",
	"WEBGL_compressed_texture_s3tc",
	"WEBGL_depth_texture",
	"WEBGL_draw_buffers",
	"WEBGL_lose_context",
}

// WebGLExtensions returns a copy of the fixed extension list.
func WebGLExtensions() []string {
	out := make([]string, len(webglExtensions))
	copy(out, webglExtensions)
	return out
}
