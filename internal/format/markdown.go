package format

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParseResult contains plain text and message entities
type ParseResult struct {
	Text     string
	Entities []tgbotapi.MessageEntity
}

// UTF16Len is the length of s in UTF-16 code units, the unit Telegram
// uses for entity offsets.
func UTF16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

var (
	boldRe = regexp.MustCompile(`\*\*(.+?)\*\*`)
	codeRe = regexp.MustCompile("`([^`]+?)`")
)

// ParseMarkdown strips **bold** and `code` markers from text and returns
// the matching Telegram entities.
func ParseMarkdown(text string) ParseResult {
	var entities []tgbotapi.MessageEntity
	result := text

	strip := func(re *regexp.Regexp, kind string) {
		for {
			loc := re.FindStringSubmatchIndex(result)
			if loc == nil {
				return
			}
			inner := result[loc[2]:loc[3]]
			entities = append(entities, tgbotapi.MessageEntity{
				Type:   kind,
				Offset: UTF16Len(result[:loc[0]]),
				Length: UTF16Len(inner),
			})
			// Entities found earlier that start after this match shift left
			// by the removed markers.
			removed := UTF16Len(result[loc[0]:loc[1]]) - UTF16Len(inner)
			for i := range entities[:len(entities)-1] {
				if entities[i].Offset > UTF16Len(result[:loc[0]]) {
					entities[i].Offset -= removed
				}
			}
			result = result[:loc[0]] + inner + result[loc[1]:]
		}
	}
	strip(boldRe, "bold")
	strip(codeRe, "code")

	sort.SliceStable(entities, func(i, j int) bool { return entities[i].Offset < entities[j].Offset })

	return ParseResult{
		Text:     strings.TrimRight(result, " \n"),
		Entities: entities,
	}
}
