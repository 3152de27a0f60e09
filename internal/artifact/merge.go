package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// MergedFilename is the name of a merged summary for the given chapters.
func MergedFilename(arcNumber int, chapterIDs []string) string {
	return fmt.Sprintf("Arc %d Chapter(s) %s Summary.txt", arcNumber, FormatChapterRange(chapterIDs))
}

// FormatChapterRange renders chapter ids as "first-last" when they are
// consecutive integers and "first...last" otherwise.
func FormatChapterRange(chapterIDs []string) string {
	if len(chapterIDs) == 0 {
		return ""
	}
	nums := make([]int, 0, len(chapterIDs))
	for _, id := range chapterIDs {
		n, err := strconv.Atoi(id)
		if err != nil {
			ids := slices.Clone(chapterIDs)
			slices.Sort(ids)
			return ids[0] + "..." + ids[len(ids)-1]
		}
		nums = append(nums, n)
	}
	slices.Sort(nums)
	first, last := nums[0], nums[len(nums)-1]
	sep := "-"
	for i := 1; i < len(nums); i++ {
		if nums[i] != nums[i-1]+1 {
			sep = "..."
			break
		}
	}
	return strconv.Itoa(first) + sep + strconv.Itoa(last)
}

// Merge concatenates chapter artifacts from srcDir, in the given order, into
// one merged file in dstDir and returns its path.
func Merge(srcDir, dstDir string, arcNumber int, chapterIDs []string) (string, error) {
	if len(chapterIDs) == 0 {
		return "", fmt.Errorf("merge: no chapters")
	}
	parts := make([]string, 0, len(chapterIDs))
	for _, id := range chapterIDs {
		text, err := ReadChapter(srcDir, arcNumber, id)
		if err != nil {
			return "", fmt.Errorf("merge chapter %s: %w", id, err)
		}
		parts = append(parts, text)
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dstDir, MergedFilename(arcNumber, chapterIDs))
	if err := writeFileAtomic(path, []byte(strings.Join(parts, recordSeparator))); err != nil {
		return "", err
	}
	return path, nil
}
