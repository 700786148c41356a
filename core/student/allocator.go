package student

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxRollNo is the highest roll number of a class section.
const MaxRollNo = 50

const dateLayout = "2006-01-02"

// NextRollNo returns the smallest roll number in [1, MaxRollNo] unused by students, 0 when all are taken.
// students are expected to belong to the same class section.
func NextRollNo(students []Student) int {
	used := make(map[int]bool, len(students))
	for _, s := range students {
		used[s.RollNo] = true
	}
	for roll := 1; roll <= MaxRollNo; roll++ {
		if !used[roll] {
			return roll
		}
	}
	return 0
}

// FormatStudentID builds `{FirstLetterUpper}{YY}-{roll:02}-{seq:04}`,
// e.g. FormatStudentID("Sunrise", 2024, 7, 3) == "S24-07-0003".
func FormatStudentID(schoolName string, year, rollNo, seq int) string {
	var initial string
	if r, _ := utf8.DecodeRuneInString(strings.TrimSpace(schoolName)); r != utf8.RuneError {
		initial = string(unicode.ToUpper(r))
	}
	return fmt.Sprintf("%s%02d-%02d-%04d", initial, year%100, rollNo, seq)
}

// ParseSequence returns the admission sequence of a formatted student id, 0 when id has none.
func ParseSequence(id string) int {
	i := strings.LastIndexByte(id, '-')
	if i < 0 {
		return 0
	}
	seq, err := strconv.Atoi(id[i+1:])
	if err != nil || seq < 0 {
		return 0
	}
	return seq
}
