package engine

import "errors"

// Error taxonomy. Asset and render errors are surfaced to the owning
// widget only; session errors are broadcast; parameter range violations
// clamp silently and scheduler overruns drop the missed dispatch.
var (
	ErrSessionUnavailable = errors.New("engine: audio session unavailable")
	ErrAssetTooLarge      = errors.New("engine: asset exceeds size limit")
	ErrAssetDecodeFailed  = errors.New("engine: asset decode failed")
	ErrAssetFetchFailed   = errors.New("engine: asset fetch failed")
	ErrGraphBuildFailed   = errors.New("engine: graph build failed")
	ErrRenderFailed       = errors.New("engine: offline render failed")
)
