// Package leveling holds the point and level math for the progression
// system. Kept free of storage so the rules are trivially testable.
package leveling

const (
	// PointsPerCompletion is awarded for the first successful solve of a
	// challenge. Repeat solves earn nothing.
	PointsPerCompletion = 25

	// pointsPerLevel is how many points one level spans.
	pointsPerLevel = 100
)

// LevelForPoints maps a point total to a level. Levels start at 1.
func LevelForPoints(points int) int {
	if points < 0 {
		return 1
	}
	return points/pointsPerLevel + 1
}

// PointsToNextLevel reports how many points remain until the next level.
func PointsToNextLevel(points int) int {
	if points < 0 {
		points = 0
	}
	return pointsPerLevel - points%pointsPerLevel
}
