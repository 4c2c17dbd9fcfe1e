// Package psd reads, manipulates and writes Adobe Photoshop documents in
// the PSD format and its 64-bit PSB variant.
//
// A document is either decoded from a file or created empty for authoring:
//
//	doc, err := psd.DecodeFile("artwork.psd", nil)
//	...
//	doc, err := psd.NewDocument(psd.ColorModeRGB, 8, 1920, 1080)
//
// The document holds an ordered tree of layers. Image layers own their
// pixel channels in a chunked, compressed in-memory store so that large
// documents never sit fully decompressed in RAM; channels are decoded on
// demand and can be moved out with ExtractChannel. Groups nest arbitrarily
// and smart-object layers reference shared source assets through the
// document's linked-layer store.
//
// Writing inverts decoding with a planning pass that computes every
// forward section length before the body is streamed out:
//
//	err := psd.EncodeFile(doc, "artwork.psb", &psd.EncodeOptions{Version: psd.VersionPSB})
//
// Compositing and smart-object warping live in the render and warp
// subpackages. The package produces no log output by default; call
// SetLogger to enable diagnostics.
package psd
