// Package pages parses user supplied page range expressions such as "1-5, 8, 12-15".
package pages

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Epistemic-Technology/pdf-transcribe/models"
)

// ParsePageRanges validates a comma separated list of pages and ranges against maxPage and
// returns the selected pages in ascending order without duplicates. Empty segments
// (for example a trailing comma) are skipped.
func ParsePageRanges(input string, maxPage int) (models.PageSet, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &ValidationError{Reason: ErrEmptyInput, Message: "Page range input cannot be empty."}
	}

	pageSet := make(map[int]struct{})

	for segment := range strings.SplitSeq(input, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		if strings.Contains(segment, "-") {
			start, end, err := parseRange(segment, maxPage)
			if err != nil {
				return nil, err
			}
			for i := start; i <= end; i++ {
				pageSet[i] = struct{}{}
			}
			continue
		}

		page, err := strconv.Atoi(segment)
		if err != nil {
			return nil, &ValidationError{
				Segment: segment,
				Reason:  ErrInvalidNumber,
				Message: fmt.Sprintf("Invalid page number: %q", segment),
			}
		}
		if page < 1 || page > maxPage {
			return nil, &ValidationError{
				Segment: segment,
				Reason:  ErrPageOutOfBounds,
				Message: fmt.Sprintf("Page number must be between 1 and %d. Invalid page: %q", maxPage, segment),
			}
		}
		pageSet[page] = struct{}{}
	}

	if len(pageSet) == 0 {
		return nil, &ValidationError{Reason: ErrNoValidPages, Message: "No valid pages were specified."}
	}

	result := make(models.PageSet, 0, len(pageSet))
	for page := range pageSet {
		result = append(result, page)
	}
	slices.Sort(result)

	return result, nil
}

func parseRange(segment string, maxPage int) (int, int, error) {
	parts := strings.Split(segment, "-")
	if len(parts) != 2 {
		return 0, 0, &ValidationError{
			Segment: segment,
			Reason:  ErrInvalidRangeFormat,
			Message: fmt.Sprintf("Invalid range format: %q", segment),
		}
	}

	start, startErr := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, endErr := strconv.Atoi(strings.TrimSpace(parts[1]))
	if startErr != nil || endErr != nil {
		return 0, 0, &ValidationError{
			Segment: segment,
			Reason:  ErrInvalidNumber,
			Message: fmt.Sprintf("Invalid numbers in range: %q", segment),
		}
	}
	if start > end {
		return 0, 0, &ValidationError{
			Segment: segment,
			Reason:  ErrStartAfterEnd,
			Message: fmt.Sprintf("Start page cannot be greater than end page in range: %q", segment),
		}
	}
	if start < 1 || end > maxPage {
		return 0, 0, &ValidationError{
			Segment: segment,
			Reason:  ErrPageOutOfBounds,
			Message: fmt.Sprintf("Pages must be between 1 and %d. Invalid range: %q", maxPage, segment),
		}
	}

	return start, end, nil
}

// FormatPageSet renders pages as a comma separated list that ParsePageRanges accepts
func FormatPageSet(pages models.PageSet) string {
	parts := make([]string, len(pages))
	for i, page := range pages {
		parts[i] = strconv.Itoa(page)
	}
	return strings.Join(parts, ",")
}

// AllPages returns 1..pageCount
func AllPages(pageCount int) models.PageSet {
	result := make(models.PageSet, pageCount)
	for i := range pageCount {
		result[i] = i + 1
	}
	return result
}

// DefaultExpression is the range expression that selects every page of a document
func DefaultExpression(pageCount int) string {
	if pageCount == 1 {
		return "1"
	}
	return fmt.Sprintf("1-%d", pageCount)
}
