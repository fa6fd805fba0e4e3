package attendance

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const registerSheet = "Register"

// ExportRegister renders the attendance records matching the filter as an
// .xlsx register: one row per student, one column per session date.
func (svc *Service) ExportRegister(ctx context.Context, filter *QueryFilter) (*bytes.Buffer, error) {
	recs, err := svc.repo.QueryRecords(ctx, filter, nil)
	if err != nil {
		return nil, err
	}

	// group statuses by student and date
	dateSet := make(map[string]struct{})
	byStudent := make(map[string]map[string]string) // {studentID: {date: status}}
	for _, rec := range recs {
		date := rec.Date.Format("2006-01-02")
		dateSet[date] = struct{}{}
		if byStudent[rec.StudentID] == nil {
			byStudent[rec.StudentID] = make(map[string]string)
		}
		byStudent[rec.StudentID][date] = rec.Status
	}

	dates := make([]string, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	students := make([]string, 0, len(byStudent))
	for studentID := range byStudent {
		students = append(students, studentID)
	}
	sort.Strings(students)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	idx, err := f.NewSheet(registerSheet)
	if err != nil {
		return nil, errors.Wrap(err, "creating register sheet")
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	// header row
	_ = f.SetCellValue(registerSheet, "A1", "Student")
	for i, date := range dates {
		cell, _ := excelize.CoordinatesToCellName(i+2, 1)
		_ = f.SetCellValue(registerSheet, cell, date)
	}

	for r, studentID := range students {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		_ = f.SetCellValue(registerSheet, cell, studentID)
		for c, date := range dates {
			if status, ok := byStudent[studentID][date]; ok {
				cell, _ = excelize.CoordinatesToCellName(c+2, r+2)
				_ = f.SetCellValue(registerSheet, cell, status)
			}
		}
	}

	// generation stamp
	stampCell, _ := excelize.CoordinatesToCellName(1, len(students)+3)
	_ = f.SetCellValue(registerSheet, stampCell, fmt.Sprintf("Generated %s", time.Now().UTC().Format(time.RFC3339)))

	buff, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing register")
	}
	return buff, nil
}
