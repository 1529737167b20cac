package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/starford/idlepick/internal/apperr"
	"github.com/starford/idlepick/internal/models"
)

const utf8BOM = "\uFEFF"

// Merger absorbs a batch of ids and reports how many were new.
type Merger interface {
	ImportMerge(ids map[models.AppID]struct{}) int
}

// ImportResult summarizes one import.
type ImportResult struct {
	Added   int `json:"added"`
	Parsed  int `json:"parsed"`
	Skipped int `json:"skipped"`
}

// ParseIDs scans CSV records and collects the app id in the first column of
// each. Blank lines and header lines are ignored; records whose first column
// is not a non-negative integer are counted as skipped and otherwise ignored.
// A quoted name may span lines; its continuation lines are not records.
// Lines are read without a length limit.
func ParseIDs(r io.Reader) (map[models.AppID]struct{}, int, error) {
	ids := make(map[models.AppID]struct{})
	skipped := 0

	br := bufio.NewReader(r)
	first := true
	inQuotes := false
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("%w: %v", apperr.ErrImportSourceUnreadable, err)
		}
		if line == "" && err != nil {
			break
		}
		if first {
			line = strings.TrimPrefix(line, utf8BOM)
			first = false
		}

		if inQuotes {
			// Continuation of a quoted name; "" escapes keep the parity.
			if strings.Count(line, `"`)%2 == 1 {
				inQuotes = false
			}
		} else {
			col, rest, _ := strings.Cut(line, ",")
			inQuotes = strings.Count(rest, `"`)%2 == 1

			trimmed := strings.TrimSpace(line)
			if trimmed != "" && !isHeader(trimmed) {
				id, perr := strconv.ParseUint(strings.TrimSpace(col), 10, 32)
				if perr != nil {
					skipped++
				} else {
					ids[models.AppID(id)] = struct{}{}
				}
			}
		}

		if err != nil {
			break
		}
	}
	return ids, skipped, nil
}

// Import parses r and merges the ids into dst in one batch. A read failure
// leaves dst untouched.
func Import(r io.Reader, dst Merger) (ImportResult, error) {
	ids, skipped, err := ParseIDs(r)
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{
		Added:   dst.ImportMerge(ids),
		Parsed:  len(ids),
		Skipped: skipped,
	}, nil
}

func isHeader(line string) bool {
	return len(line) >= len("appid") && strings.EqualFold(line[:len("appid")], "appid")
}
