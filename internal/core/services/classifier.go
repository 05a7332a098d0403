package services

import (
	"net/url"
	"regexp"
	"strings"

	"deal-link-bot/internal/domain"
	"deal-link-bot/internal/ports"
)

// shareMarker отмечает короткую ссылку, которую нужно пройти по редиректам.
const shareMarker = "/share/"

// postIDRegexp находит сегмент /post/<digits> или /reels/<digits>.
var postIDRegexp = regexp.MustCompile(`/(?:post|reels)/(\d+)`)

// Classifier реализует интерфейс URLClassifier.
// Правила не зависят от домена: чужие хосты просто не дадут результатов в каталоге.
type Classifier struct{}

// NewClassifier создает новый экземпляр Classifier.
func NewClassifier() ports.URLClassifier {
	return &Classifier{}
}

// Classify применяет правила по порядку, первое совпадение выигрывает.
func (c *Classifier) Classify(raw string) domain.ClassifiedURL {
	if strings.Contains(raw, shareMarker) {
		return domain.ClassifiedURL{Raw: raw, Kind: domain.KindRedirect}
	}

	if postID := extractPostID(raw); postID != "" {
		return domain.ClassifiedURL{Raw: raw, Kind: domain.KindPostOrReel, PostID: postID}
	}

	return domain.ClassifiedURL{Raw: raw, Kind: domain.KindUnrecognized}
}

// extractPostID ищет идентификатор в пути URL. Если URL не разбирается,
// поиск идет по исходной строке.
func extractPostID(raw string) string {
	target := raw
	if u, err := url.Parse(raw); err == nil {
		target = u.Path
	}

	matches := postIDRegexp.FindStringSubmatch(target)
	if len(matches) > 1 {
		return matches[1]
	}
	return ""
}
