package xlsx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestAppend_CreatesWorkbookWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intake.xlsx")
	s := New(path, "Intake", nil)

	row := []string{"白雲杉-特級", "700", "6", "2028-04", "7-330705", "2026-08-29 14:30:05"}
	require.NoError(t, s.Append(context.Background(), row))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Intake")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "品名", rows[0][0])
	assert.Equal(t, row, rows[1])
}

func TestAppend_AppendsAfterExistingRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intake.xlsx")
	s := New(path, "Intake", nil)

	first := []string{"白雲杉", "700", "6", "2028-04", "7-330705", "2026-08-29 14:30:05"}
	second := []string{"薰衣草", "550", "10", "2027-11", "A12-99", "2026-08-29 14:31:10"}
	require.NoError(t, s.Append(context.Background(), first))
	require.NoError(t, s.Append(context.Background(), second))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Intake")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, first, rows[1])
	assert.Equal(t, second, rows[2])
}

func TestAppend_NoDefaultSheetLeftBehind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intake.xlsx")
	s := New(path, "Intake", nil)
	require.NoError(t, s.Append(context.Background(), []string{"白雲杉", "", "", "", "", ""}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Intake"}, f.GetSheetList())
}

func TestAppend_DefaultSheetName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intake.xlsx")
	s := New(path, "", nil)
	require.NoError(t, s.Append(context.Background(), []string{"白雲杉", "", "", "", "", ""}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	idx, err := f.GetSheetIndex("Intake")
	require.NoError(t, err)
	assert.NotEqual(t, -1, idx)
}
