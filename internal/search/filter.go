package search

// FilterResults partitions raw result items against the wanted season
// and episode. Pure function of its inputs; input records are not
// mutated.
//
// Items whose season disagrees with wantSeason are dropped. When
// wantEpisode is set, items carrying that exact episode are kept and
// items with no episode number (season packs) are set aside; the packs
// are emitted only when no exact match survived, never merged with
// exact matches. When wantEpisode is nil every season-matching item is
// kept, season packs included. Duplicates are removed by item identity,
// first occurrence wins.
func FilterResults(items []RawResultItem, wantSeason, wantEpisode *int) []RawResultItem {
	matches := make([]RawResultItem, 0, len(items))
	var seasonPacks []RawResultItem
	seen := make(map[string]struct{})

	for _, item := range items {
		key := itemKey(&item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if wantSeason != nil && !intEqual(item.Season, *wantSeason) {
			continue
		}

		if wantEpisode != nil {
			switch {
			case intEqual(item.Episode, *wantEpisode):
				matches = append(matches, item)
			case item.Episode == nil:
				// Season pack covering the wanted season; kept back as a
				// fallback in case no exact episode shows up.
				seasonPacks = append(seasonPacks, item)
			default:
				// Some other episode.
			}
			continue
		}

		matches = append(matches, item)
	}

	if len(matches) == 0 && len(seasonPacks) > 0 {
		return seasonPacks
	}
	return matches
}

// itemKey identifies an item for deduplication: the page URL when
// present, the raw id otherwise.
func itemKey(item *RawResultItem) string {
	if item.PageURL != "" {
		return item.PageURL
	}
	return "id:" + item.ID
}

func intEqual(v *int, want int) bool {
	return v != nil && *v == want
}
