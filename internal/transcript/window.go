package transcript

import (
	"strings"

	"tandem/internal/textmatch"
)

// WindowAt returns the transcript text around a timestamp. The anchor is the
// segment containing the timestamp, or the nearest segment by boundary
// distance when no segment contains it. Neighbors are added left first, then
// right, until the window reaches minChars or the transcript is exhausted.
func WindowAt(segments []Segment, timestamp float64, minChars int) (string, bool) {
	if len(segments) == 0 {
		return "", false
	}

	anchor := -1
	for i, seg := range segments {
		if seg.Start <= timestamp && timestamp <= seg.End {
			anchor = i
			break
		}
	}
	if anchor == -1 {
		closest := -1.0
		for i, seg := range segments {
			dist := timestamp - seg.Start
			if dist < 0 {
				dist = -dist
			}
			if endDist := abs(timestamp - seg.End); endDist < dist {
				dist = endDist
			}
			if closest < 0 || dist < closest {
				closest = dist
				anchor = i
			}
		}
	}

	left, right := anchor, anchor
	length := len(segments[anchor].Text)
	for length < minChars {
		grew := false
		if left > 0 {
			left--
			length += len(segments[left].Text)
			grew = true
		}
		if length >= minChars {
			break
		}
		if right < len(segments)-1 {
			right++
			length += len(segments[right].Text)
			grew = true
		}
		if !grew {
			break
		}
	}

	parts := make([]string, 0, right-left+1)
	for i := left; i <= right; i++ {
		parts = append(parts, segments[i].Text)
	}
	return strings.Join(parts, " "), true
}

// TimeForText finds the segment best matching a probe snippet and returns
// its start time. The best score must strictly exceed cutoff; shorter
// segments are aligned inside the snippet, so recognition noise around the
// matching span does not drag the score down.
func TimeForText(segments []Segment, snippet string, cutoff int) (float64, bool) {
	bestScore := -1
	bestStart := 0.0
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		alignment, ok := textmatch.PartialRatio(seg.Text, snippet, cutoff)
		if !ok {
			continue
		}
		if alignment.Score > bestScore {
			bestScore = alignment.Score
			bestStart = seg.Start
		}
	}
	if bestScore <= cutoff {
		return 0, false
	}
	return bestStart, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
