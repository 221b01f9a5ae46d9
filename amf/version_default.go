//go:build !(linux && cgo && with_amf)

package amf

// FullVersion is the AMF_FULL_VERSION requested from the runtime.
var FullVersion = MakeFullVersion(1, 4, 34, 0)
