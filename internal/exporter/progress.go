package exporter

// ProgressEvent 导出进度，Stage 为当前写入的工作表
type ProgressEvent struct {
	Percent int    `json:"percent"`
	Stage   string `json:"stage"`
}

func reportProgress(progress func(ProgressEvent), percent int, stage string) {
	if progress == nil {
		return
	}
	progress(ProgressEvent{Percent: min(max(percent, 0), 100), Stage: stage})
}
