package webhook

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/uitmtimetable/icress-linebot-go/internal/bot"
)

// LINE API limits.
const (
	maxQuickReplyItems = 13
	maxActionLabelLen  = 20
)

// resultMessages turns a dialog result into LINE messages. Pick lists get
// quick reply buttons; the full list always appears in the message body
// because quick replies cap out at thirteen items.
func resultMessages(result bot.Result) []messaging_api.MessageInterface {
	switch result.Kind {
	case bot.ResultCampusList:
		return []messaging_api.MessageInterface{newPickListMessage(bot.MsgSelectCampus, result.Options)}
	case bot.ResultFacultyList:
		return []messaging_api.MessageInterface{newPickListMessage(bot.MsgSelectFaculty, result.Options)}
	case bot.ResultInvalidCampus:
		return []messaging_api.MessageInterface{newTextMessage(bot.MsgInvalidCampus)}
	case bot.ResultInvalidFaculty:
		return []messaging_api.MessageInterface{newTextMessage(bot.MsgInvalidFaculty)}
	case bot.ResultEnterCourses:
		return []messaging_api.MessageInterface{newTextMessage(bot.MsgEnterCourses)}
	case bot.ResultInvalidCourses:
		return []messaging_api.MessageInterface{newTextMessage(bot.MsgInvalidCourses)}
	case bot.ResultTimetable:
		return []messaging_api.MessageInterface{newTextMessage(bot.RenderTimetable(result.Timetable))}
	case bot.ResultNotFound:
		return []messaging_api.MessageInterface{newTextMessage(bot.MsgTimetableNotFound)}
	default:
		return nil
	}
}

func newTextMessage(text string) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{Text: text}
}

// newPickListMessage builds a prompt whose body lists every option and
// whose quick reply carries the first thirteen as tap targets. Tapping a
// button sends the option name back as a regular text message.
func newPickListMessage(prompt string, options []string) *messaging_api.TextMessage {
	text := prompt
	for _, option := range options {
		text += "\n- " + option
	}
	msg := newTextMessage(text)

	if len(options) == 0 {
		return msg
	}

	count := min(len(options), maxQuickReplyItems)
	items := make([]messaging_api.QuickReplyItem, 0, count)
	for _, option := range options[:count] {
		items = append(items, messaging_api.QuickReplyItem{
			Action: &messaging_api.MessageAction{
				Label: truncateLabel(option),
				Text:  option,
			},
		})
	}
	msg.QuickReply = &messaging_api.QuickReply{Items: items}

	return msg
}

// truncateLabel fits an option name into the action label limit.
func truncateLabel(s string) string {
	runes := []rune(s)
	if len(runes) <= maxActionLabelLen {
		return s
	}
	return string(runes[:maxActionLabelLen-1]) + "…"
}
