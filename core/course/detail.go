package course

import (
	"fmt"
	"sort"
)

type Detail struct {
	Course       Course       `json:"course"`
	Teacher      TeacherStats `json:"teacher_stats"`
	Sections     []Section    `json:"sections"`
	LectureCount int          `json:"lecture_count"`
	TotalMinutes int          `json:"total_minutes"`
	Duration     string       `json:"duration"`
	Preview      *Lecture     `json:"preview"`

	Reviews     []Review `json:"reviews"`
	Related     []Course `json:"related"`
	IsEnrolled  bool     `json:"is_enrolled"`
	InWatchlist bool     `json:"in_watchlist"`
}

// BuildDetail orders sections and their lectures by order index and computes the duration rollups.
// Lectures whose section is not among sections are dropped.
func BuildDetail(c Course, stats TeacherStats, sections []Section, lectures []Lecture) Detail {
	d := Detail{
		Course:   c,
		Teacher:  stats,
		Sections: GroupLectures(sections, lectures),
		Reviews:  []Review{},
		Related:  []Course{},
	}

	for _, sec := range d.Sections {
		d.LectureCount += sec.LectureCount
		d.TotalMinutes += sec.Minutes
		if d.Preview == nil {
			for i := range sec.Lectures {
				if sec.Lectures[i].IsPreview {
					lec := sec.Lectures[i]
					d.Preview = &lec
					break
				}
			}
		}
	}
	d.Duration = FormatDuration(d.TotalMinutes)
	return d
}

// GroupLectures attaches lectures to their sections, both sorted by order index.
func GroupLectures(sections []Section, lectures []Lecture) []Section {
	grouped := make([]Section, len(sections))
	copy(grouped, sections)
	sort.SliceStable(grouped, func(i, j int) bool {
		if grouped[i].OrderIndex != grouped[j].OrderIndex {
			return grouped[i].OrderIndex < grouped[j].OrderIndex
		}
		return grouped[i].ID < grouped[j].ID
	})

	idx := make(map[int64]int, len(grouped))
	for i := range grouped {
		idx[grouped[i].ID] = i
		grouped[i].Lectures = []Lecture{}
	}
	for _, lec := range lectures {
		if i, ok := idx[lec.SectionID]; ok {
			grouped[i].Lectures = append(grouped[i].Lectures, lec)
		}
	}

	for i := range grouped {
		sec := &grouped[i]
		sort.SliceStable(sec.Lectures, func(a, b int) bool {
			if sec.Lectures[a].OrderIndex != sec.Lectures[b].OrderIndex {
				return sec.Lectures[a].OrderIndex < sec.Lectures[b].OrderIndex
			}
			return sec.Lectures[a].ID < sec.Lectures[b].ID
		})
		sec.LectureCount = len(sec.Lectures)
		sec.Minutes = 0
		for _, lec := range sec.Lectures {
			sec.Minutes += lec.Minutes
		}
		sec.Duration = FormatDuration(sec.Minutes)
	}
	return grouped
}

// FormatDuration renders minutes as "H giờ M phút", or "M phút" under one hour.
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	h, m := minutes/60, minutes%60
	if h == 0 {
		return fmt.Sprintf("%d phút", m)
	}
	return fmt.Sprintf("%d giờ %d phút", h, m)
}
