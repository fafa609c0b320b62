// Package sheets implements the ledger on a Google Sheets spreadsheet,
// the board's production system of record. Rank rows live in columns A:C
// of one sheet (row order = ledger order) and the announcement is a
// single scalar cell in the same sheet.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"flowerboard.live/fbd/internal/ledger"
	"flowerboard.live/fbd/internal/ranks"
	"flowerboard.live/fbd/internal/types"
)

const (
	defaultSheetName = "Sheet1"
	// announcementCell holds the announcement scalar, well clear of the
	// A:C rank columns so the two never collide.
	announcementCell = "G2"
)

// Store implements ledger.Store on one spreadsheet.
type Store struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewStore builds a Sheets-backed store authenticated by a service
// account credentials file. sheetName falls back to "Sheet1" when empty.
func NewStore(ctx context.Context, spreadsheetID, credentialsFile, sheetName string) (*Store, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if sheetName == "" {
		sheetName = defaultSheetName
	}

	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	return &Store{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func (s *Store) ranksRange() string {
	return fmt.Sprintf("%s!A:C", s.sheetName)
}

func (s *Store) announcementRange() string {
	return fmt.Sprintf("%s!%s", s.sheetName, announcementCell)
}

// Rows reads the full A:C range. Totals are parsed tolerantly: a
// malformed cell becomes zero rather than failing the snapshot.
func (s *Store) Rows(ctx context.Context) ([]types.Entry, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.ranksRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ledger.ErrReadFailed, s.ranksRange(), err)
	}

	entries := make([]types.Entry, 0, len(resp.Values))
	for _, row := range resp.Values {
		entries = append(entries, types.Entry{
			Name:    cellString(row, 0),
			Country: cellString(row, 1),
			Flowers: ranks.ParseTotal(cellString(row, 2)),
		})
	}

	return entries, nil
}

// UpdateRow overwrites the sheet row at the given 0-based ledger
// position. Sheet rows are 1-based, so ledger index n maps to row n+1.
func (s *Store) UpdateRow(ctx context.Context, index int, e types.Entry) error {
	rng := fmt.Sprintf("%s!A%d:C%d", s.sheetName, index+1, index+1)
	vr := &sheets.ValueRange{
		Values: [][]interface{}{{e.Name, e.Country, e.Flowers}},
	}

	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: update %s: %v", ledger.ErrWriteFailed, rng, err)
	}

	return nil
}

// AppendRow adds a row after the current table. The append anchor only
// names the table start; the API locates the actual end itself.
func (s *Store) AppendRow(ctx context.Context, e types.Entry) error {
	anchor := fmt.Sprintf("%s!A2", s.sheetName)
	vr := &sheets.ValueRange{
		Values: [][]interface{}{{e.Name, e.Country, e.Flowers}},
	}

	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, anchor, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: append to %s: %v", ledger.ErrWriteFailed, anchor, err)
	}

	return nil
}

// Announcement reads the announcement cell; an empty cell yields "".
func (s *Store) Announcement(ctx context.Context) (string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.announcementRange()).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ledger.ErrReadFailed, s.announcementRange(), err)
	}

	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return "", nil
	}
	return cellString(resp.Values[0], 0), nil
}

// SetAnnouncement overwrites the announcement cell wholesale.
func (s *Store) SetAnnouncement(ctx context.Context, message string) error {
	vr := &sheets.ValueRange{
		Values: [][]interface{}{{message}},
	}

	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.announcementRange(), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: update %s: %v", ledger.ErrWriteFailed, s.announcementRange(), err)
	}

	return nil
}

func cellString(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	if s, ok := row[i].(string); ok {
		return s
	}
	return fmt.Sprint(row[i])
}
