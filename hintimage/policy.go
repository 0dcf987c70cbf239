package hintimage

// ShouldRematch decides whether one hint image should be re-submitted
// for matching after an action, given its previous result and whether
// the screen changed.
//
// The rules, in order:
//   - no prior result: match it
//   - permanent template error: never again
//   - screenshot decode error: always retry, the next capture may decode
//   - screen changed: previously-found coordinates may have shifted and
//     a size error may have been resolved by a resolution change, so
//     everything else is re-matched
//   - size error on an unchanged screen: retrying cannot help
//   - otherwise retry only what was not found
func ShouldRematch(prev *MatchResult, screenChanged bool) bool {
	if prev == nil {
		return true
	}
	if prev.ErrorCode.IsPermanent() {
		return false
	}
	if prev.ErrorCode == CodeScreenshotDecodeFailed {
		return true
	}
	if screenChanged {
		return true
	}
	if prev.ErrorCode.IsSizeRelated() {
		return false
	}
	return !prev.Found
}

// SelectForRematch filters a scenario's hint images down to the ones the
// policy wants re-matched.
func SelectForRematch(images []HintImage, results ResultSet, screenChanged bool) []HintImage {
	var selected []HintImage
	for _, img := range images {
		var prev *MatchResult
		if r, ok := results[img.Index]; ok {
			prev = &r
		}
		if ShouldRematch(prev, screenChanged) {
			selected = append(selected, img)
		}
	}
	return selected
}
