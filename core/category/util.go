package category

import "sort"

func sortByEnrollments(cats []Category) {
	sort.SliceStable(cats, func(i, j int) bool {
		if cats[i].EnrollmentCount != cats[j].EnrollmentCount {
			return cats[i].EnrollmentCount > cats[j].EnrollmentCount
		}
		return cats[i].CourseCount > cats[j].CourseCount
	})
}
