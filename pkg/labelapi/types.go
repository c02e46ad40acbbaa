package labelapi

import "encoding/json"

// Wire types of the dataset backend.
// SYNC-BACKEND-DETECTION-JSON

// BBox is [x1, y1, x2, y2], normalized to the image extent.
type BBox [4]float64

// Detection is a single object found by the detection model
type Detection struct {
	BBox       BBox    `json:"bbox"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class_id"`
	ClassName  string  `json:"class_name"`
}

// AnalysisResult is the result of running the detection model on one frame
type AnalysisResult struct {
	Detections []Detection `json:"detections"`
	ImgShape   [2]int      `json:"img_shape"` // [height, width]
	ImgPath    string      `json:"img_path"`
}

// MaskDetection is a saved (human corrected) annotation. It has no confidence.
type MaskDetection struct {
	BBox      BBox   `json:"bbox"`
	ClassID   int    `json:"class_id"`
	ClassName string `json:"class_name"`
}

// MaskRequest is the body of a save mask request
type MaskRequest struct {
	Detections []MaskDetection `json:"detections"`
}

const StatusOK = "ok"

type analyseResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Result *AnalysisResult `json:"result"`
}

type classesResponse struct {
	Status  string          `json:"status"`
	Error   string          `json:"error,omitempty"`
	Classes json.RawMessage `json:"classes"`
}

type maskResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Result *struct {
		Detections []MaskDetection `json:"detections"`
	} `json:"result"`
}

type saveResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
