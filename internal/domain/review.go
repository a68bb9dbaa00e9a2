package domain

import "unicode/utf8"

type Review struct {
	Author string `json:"author"`
	Text   string `json:"text"`
	Rating int    `json:"rating"` // 1..5, 0 when the label could not be parsed
	Time   string `json:"time"`   // relative ("2 weeks ago") or absolute, as shown by the source
}

const dedupPrefixRunes = 50

// DedupKey is the local identity of a review: author, time and the first
// 50 characters of the body, NUL separated so no field can bleed into the
// next.
func (r Review) DedupKey() string {
	body := r.Text
	if utf8.RuneCountInString(body) > dedupPrefixRunes {
		body = string([]rune(body)[:dedupPrefixRunes])
	}
	return r.Author + "\x00" + r.Time + "\x00" + body
}
