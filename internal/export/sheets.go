// Package export appends processed prescriptions to a Google Sheets
// ledger, one row per prescription.
package export

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"rxscan/internal/logger"
	"rxscan/pkg/metrics"
	"rxscan/pkg/models"
)

// DefaultWorksheet is the ledger tab used when none is configured.
const DefaultWorksheet = "Prescriptions"

// ledgerRange covers the ledger columns A through Q.
const ledgerRange = "A:Q"

var ledgerHeaders = []interface{}{
	"File", "Exam Date", "Doctor",
	"OD Sphere", "OD Cylinder", "OD Axis", "OD Add",
	"OS Sphere", "OS Cylinder", "OS Axis", "OS Add",
	"PD", "Status", "Validation", "Notes", "Message", "Processed At",
}

// Service handles Google Sheets ledger operations.
type Service struct {
	sheets        *sheets.Service
	spreadsheetID string
	worksheet     string
	log           zerolog.Logger
}

// NewSheetsService creates a ledger service for the given spreadsheet URL.
// Credentials come from GOOGLE_CREDENTIALS (inline JSON) or
// GOOGLE_APPLICATION_CREDENTIALS (key file path).
func NewSheetsService(ctx context.Context, sheetURL, worksheet string) (*Service, error) {
	const op = "NewSheetsService"

	log := logger.WithComponent("export")

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}

	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	var creds []byte
	if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	} else {
		return nil, fmt.Errorf("%s: neither GOOGLE_CREDENTIALS nor GOOGLE_APPLICATION_CREDENTIALS is set", op)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	client := config.Client(ctx)
	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	if worksheet == "" {
		worksheet = DefaultWorksheet
	}

	return &Service{
		sheets:        sheetsService,
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
		log:           log,
	}, nil
}

// extractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
func extractSpreadsheetID(url string) (string, error) {
	re := regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	matches := re.FindStringSubmatch(url)

	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL format")
	}

	return matches[1], nil
}

// EyeCells holds one eye's ledger cells. Empty strings mark absent values.
type EyeCells struct {
	Sphere   interface{}
	Cylinder interface{}
	Axis     interface{}
	Add      interface{}
}

// LedgerRow is one prescription flattened into ledger columns.
type LedgerRow struct {
	File        string
	ExamDate    interface{}
	Doctor      string
	RightEye    EyeCells
	LeftEye     EyeCells
	PD          interface{}
	Status      string
	Validation  string
	Notes       string
	Message     string
	ProcessedAt string
}

// NewLedgerRow flattens a final processing envelope into one ledger row.
func NewLedgerRow(file string, result *models.ProcessingResult) LedgerRow {
	row := LedgerRow{
		File:        file,
		ExamDate:    "",
		RightEye:    eyeCells(nil),
		LeftEye:     eyeCells(nil),
		PD:          "",
		Status:      result.Status,
		Message:     result.Message,
		ProcessedAt: time.Now().Format("2006-01-02 15:04:05"),
	}

	if result.Diagnostics != nil {
		if status, ok := result.Diagnostics[models.DiagValidationStatus].(string); ok {
			row.Validation = status
		}
		row.Notes = notesText(result.Diagnostics[models.DiagValidationNotes])
	}

	data := result.Data
	if data == nil {
		return row
	}

	if data.DoctorName != nil {
		row.Doctor = *data.DoctorName
	}
	row.ExamDate = cell(data.Date)
	row.PD = cell(data.PupillaryDistance)
	row.RightEye = eyeCells(data.RightEye)
	row.LeftEye = eyeCells(data.LeftEye)
	return row
}

// AppendResult appends one processed prescription to the ledger.
func (s *Service) AppendResult(ctx context.Context, row LedgerRow) error {
	return s.AppendResults(ctx, []LedgerRow{row})
}

// AppendResults appends rows to the ledger worksheet, creating the
// worksheet with headers on first use.
func (s *Service) AppendResults(ctx context.Context, rows []LedgerRow) error {
	const op = "AppendResults"

	start := time.Now()

	s.log.Info().
		Str("sheet", s.worksheet).
		Int("rows", len(rows)).
		Msg("Appending prescriptions to ledger")

	if err := s.ensureSheetWithHeaders(ctx); err != nil {
		metrics.RecordStageError(metrics.StageExport)
		return fmt.Errorf("%s: failed to ensure sheet exists: %w", op, err)
	}

	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		values = append(values, row.values())
	}

	_, err := s.sheets.Spreadsheets.Values.Append(
		s.spreadsheetID,
		s.worksheet+"!"+ledgerRange,
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		metrics.RecordStageError(metrics.StageExport)
		return fmt.Errorf("%s: failed to append values to sheet: %w", op, err)
	}

	metrics.RecordStageLatency(metrics.StageExport, float64(time.Since(start).Milliseconds()))

	s.log.Info().
		Int("rows_written", len(values)).
		Msg("Ledger updated")

	return nil
}

// values lays the row out in ledger column order A through Q.
func (r LedgerRow) values() []interface{} {
	return []interface{}{
		r.File,              // A: File
		r.ExamDate,          // B: Exam Date
		r.Doctor,            // C: Doctor
		r.RightEye.Sphere,   // D: OD Sphere
		r.RightEye.Cylinder, // E: OD Cylinder
		r.RightEye.Axis,     // F: OD Axis
		r.RightEye.Add,      // G: OD Add
		r.LeftEye.Sphere,    // H: OS Sphere
		r.LeftEye.Cylinder,  // I: OS Cylinder
		r.LeftEye.Axis,      // J: OS Axis
		r.LeftEye.Add,       // K: OS Add
		r.PD,                // L: PD
		r.Status,            // M: Status
		r.Validation,        // N: Validation
		r.Notes,             // O: Notes
		r.Message,           // P: Message
		r.ProcessedAt,       // Q: Processed At
	}
}

func eyeCells(eye *models.ValidatedEye) EyeCells {
	cells := EyeCells{Sphere: "", Cylinder: "", Axis: "", Add: ""}
	if eye == nil {
		return cells
	}
	if eye.Sphere != nil {
		cells.Sphere = *eye.Sphere
	}
	if eye.Cylinder != nil {
		cells.Cylinder = *eye.Cylinder
	}
	if eye.Axis != nil {
		cells.Axis = *eye.Axis
	}
	if eye.Add != nil {
		cells.Add = *eye.Add
	}
	return cells
}

func cell(v interface{}) interface{} {
	if v == nil {
		return ""
	}
	return v
}

// notesText joins validation notes with "; ". Notes arrive as []string in
// memory and as []interface{} after a JSON round trip.
func notesText(v interface{}) string {
	switch notes := v.(type) {
	case []string:
		return strings.Join(notes, "; ")
	case []interface{}:
		parts := make([]string, 0, len(notes))
		for _, n := range notes {
			parts = append(parts, fmt.Sprint(n))
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

// ensureSheetWithHeaders ensures the worksheet exists and has the ledger
// header row.
func (s *Service) ensureSheetWithHeaders(ctx context.Context) error {
	const op = "ensureSheetWithHeaders"

	spreadsheet, err := s.sheets.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get spreadsheet: %w", op, err)
	}

	var sheetExists bool
	var sheetID int64
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == s.worksheet {
			sheetExists = true
			sheetID = sheet.Properties.SheetId
			break
		}
	}

	if !sheetExists {
		s.log.Info().Str("sheet", s.worksheet).Msg("Creating new sheet")

		batchUpdateReq := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: s.worksheet},
				}},
			},
		}

		resp, err := s.sheets.Spreadsheets.BatchUpdate(s.spreadsheetID, batchUpdateReq).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to create sheet: %w", op, err)
		}

		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	headerRange := fmt.Sprintf("%s!A1:Q1", s.worksheet)
	resp, err := s.sheets.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get headers: %w", op, err)
	}

	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		s.log.Info().Str("sheet", s.worksheet).Msg("Adding headers to sheet")

		valueRange := &sheets.ValueRange{Values: [][]interface{}{ledgerHeaders}}
		_, err = s.sheets.Spreadsheets.Values.Update(
			s.spreadsheetID,
			headerRange,
			valueRange,
		).ValueInputOption("RAW").Context(ctx).Do()

		if err != nil {
			return fmt.Errorf("%s: failed to add headers: %w", op, err)
		}

		if err := s.formatHeaders(ctx, sheetID); err != nil {
			s.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
		}
	}

	return nil
}

// formatHeaders makes the header row bold and auto-sizes the columns.
func (s *Service) formatHeaders(ctx context.Context, sheetID int64) error {
	const op = "formatHeaders"

	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(len(ledgerHeaders)),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold: true,
						},
						BackgroundColor: &sheets.Color{
							Red:   0.9,
							Green: 0.9,
							Blue:  0.9,
						},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   int64(len(ledgerHeaders)),
				},
			},
		},
	}

	batchUpdateReq := &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}
	if _, err := s.sheets.Spreadsheets.BatchUpdate(s.spreadsheetID, batchUpdateReq).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%s: failed to format headers: %w", op, err)
	}

	return nil
}
