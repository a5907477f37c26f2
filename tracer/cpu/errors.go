package cpu

import "errors"

var (
	ErrNoSceneData  = errors.New("cpu: no scene data uploaded")
	ErrNoCameraData = errors.New("cpu: no camera data uploaded")
)
