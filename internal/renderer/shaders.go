package renderer

// ImageShader draws the image quad. The vertex stage applies contain scaling,
// divides by zoom (floored at 0.0001) and offsets by pan in NDC.
const ImageShader = `
struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) tex_coords: vec2<f32>,
}

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) tex_coords: vec2<f32>,
}

struct Uniforms {
    image_aspect: f32,
    window_aspect: f32,
    zoom: f32,
    pan_x: f32,
    pan_y: f32,
}

@group(0) @binding(0) var t_image: texture_2d<f32>;
@group(0) @binding(1) var s_image: sampler;
@group(1) @binding(0) var<uniform> uniforms: Uniforms;

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var scale: vec2<f32>;
    if (uniforms.image_aspect > uniforms.window_aspect) {
        scale = vec2<f32>(1.0, uniforms.window_aspect / uniforms.image_aspect);
    } else {
        scale = vec2<f32>(uniforms.image_aspect / uniforms.window_aspect, 1.0);
    }
    scale = scale / max(uniforms.zoom, 0.0001);

    let offset = vec2<f32>(-uniforms.pan_x * 2.0, uniforms.pan_y * 2.0);

    var out: VertexOutput;
    out.clip_position = vec4<f32>(in.position.xy * scale + offset, in.position.z, 1.0);
    out.tex_coords = in.tex_coords;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return textureSample(t_image, s_image, in.tex_coords);
}
`
