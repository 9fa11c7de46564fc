package notionsync

import (
	"fmt"

	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the plan entries database.
const (
	PropEntry    = "Entry"
	PropEntryKey = "Entry Key"
	PropTime     = "Time"
	PropCategory = "Category"
	PropPriority = "Priority"
	PropOwner    = "Owner"
	PropRecorded = "Recorded"
)

// EntryKey identifies entry i of a plan record across syncs.
func EntryKey(recordID string, i int) string {
	return fmt.Sprintf("%s#%d", recordID, i)
}

// PlanEntryToNotionProperties converts entry i of rec to Notion properties.
// Empty fields are left out so Notion keeps its column defaults.
func PlanEntryToNotionProperties(rec *domain.PlanRecord, i int) notionapi.Properties {
	entry := rec.Schedule.Entries[i]

	title := entry.Description
	if title == "" {
		title = "(untitled)"
	}

	props := notionapi.Properties{
		PropEntry: notionapi.TitleProperty{
			Title: richText(title),
		},
		PropEntryKey: notionapi.RichTextProperty{
			RichText: richText(EntryKey(rec.ID, i)),
		},
		PropOwner: notionapi.RichTextProperty{
			RichText: richText(rec.OwnerID),
		},
	}

	if entry.Time != "" {
		props[PropTime] = notionapi.RichTextProperty{
			RichText: richText(entry.Time),
		}
	}

	if entry.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: entry.Category},
		}
	}

	if entry.Priority != "" {
		props[PropPriority] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: entry.Priority},
		}
	}

	if !rec.RecordedAt.IsZero() {
		d := notionapi.Date(rec.RecordedAt)
		props[PropRecorded] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &d},
		}
	}

	return props
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

// extractEntryKey returns the Entry Key of a page, or "" when it has none.
func extractEntryKey(page notionapi.Page) string {
	if prop, ok := page.Properties[PropEntryKey]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(rt.RichText) > 0 {
				return rt.RichText[0].PlainText
			}
		}
	}
	return ""
}
