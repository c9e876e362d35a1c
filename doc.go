// Package pen implements a persistent ink-trail layer for a 2D stage.
//
// A Layer accumulates pen strokes (lines, dots) and stamped images into a
// composited GPU texture that survives across frames: nothing is ever
// redrawn from history, content persists in the layer's surfaces until
// cleared. Line segments are batched into vertex attribute arrays and
// flushed lazily; stamped images land on a software raster canvas that is
// merged into the GPU texture only when the composited result is needed.
// A silhouette snapshot of the composited pixels can be read back for
// CPU-side hit testing.
//
// The layer does not own a GPU context. It receives a driver.Host, which
// supplies the device, the compiled shader programs, and the native stage
// size. See the driver, driver/soft, and driver/wgpu packages.
//
// Layers are not safe for concurrent use.
package pen
