// Package export serialises session results for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"quiz-session-service/internal/domain"
)

const ContentType = "text/csv"

// WriteCSV writes one row per player: the name followed by a
// score, rank, correct column group for every question.
func WriteCSV(w io.Writer, table domain.ResultsTable) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, 1+3*table.NumQuestions)
	header = append(header, "player")
	for pos := 1; pos <= table.NumQuestions; pos++ {
		header = append(header,
			fmt.Sprintf("q%d_score", pos),
			fmt.Sprintf("q%d_rank", pos),
			fmt.Sprintf("q%d_correct", pos),
		)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, row := range table.Rows {
		record := make([]string, 0, len(header))
		record = append(record, row.Player)
		for _, cell := range row.Cells {
			rank := ""
			if cell.Correct {
				rank = strconv.Itoa(cell.Rank)
			}
			record = append(record, cell.Score.StringFixed(2), rank, strconv.FormatBool(cell.Correct))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", row.Player, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Filename is the download name of a session's results.
func Filename(sessionID string) string {
	return "session-" + sessionID + "-results.csv"
}
