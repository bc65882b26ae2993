package extract_test

import (
	"context"
	"errors"
	"fmt"

	"rxscan/internal/config"
	"rxscan/internal/extract"
)

// Example demonstrates the full extraction flow: load configuration, build
// the provider it selects, and run OCR text through it.
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("config failed:", err)
		return
	}

	extractor, err := extract.NewExtractor(cfg)
	if err != nil {
		if errors.Is(err, extract.ErrMissingAPIKey) {
			fmt.Println("set GEMINI_API_KEY or OPENAI_API_KEY first")
			return
		}
		fmt.Println("setup failed:", err)
		return
	}
	defer extractor.Close()

	ocrText := "OD: -2.25 -0.75 x90\nOS: -2.00\nPD: 62/60"

	result, err := extractor.Extract(context.Background(), ocrText)
	if err != nil {
		fmt.Println("extraction failed:", err)
		return
	}

	fmt.Printf("status=%s has_data=%v\n", result.Status, result.Data != nil)
}

// ExampleParseResponse shows that answers wrapped in markdown fences or
// prose still decode.
func ExampleParseResponse() {
	answer := "Here is the extraction:\n" +
		"```json\n" +
		`{"status": "ok", "message": "All fields extracted", "data": {"right_eye": {"sphere": "-1.25", "cylinder": null, "axis": null, "add": null}, "left_eye": null, "pupillary_distance": "63", "doctor_name": null, "date": null}, "diagnostics": {"confidence": "high"}}` + "\n" +
		"```"

	result, err := extract.ParseResponse(answer)
	if err != nil {
		fmt.Println("parse failed:", err)
		return
	}

	fmt.Println(result.Status)
	fmt.Println(result.Data.RightEye.Sphere)
	fmt.Println(result.Data.PupillaryDistance)
	// Output:
	// ok
	// -1.25
	// 63
}
