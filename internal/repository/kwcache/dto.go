package kwcache

import (
	"github.com/kailas-cloud/keywordsense/internal/domain/keyword"
)

// recordDTO is the cached JSON form of a classified keyword.
type recordDTO struct {
	Cluster   string `json:"cluster"`
	IsEnglish bool   `json:"isEnglish"`
	IsBrand   bool   `json:"isBrand"`
	Intent    string `json:"intent"`
}

func toDTO(k keyword.AnalyzedKeyword) recordDTO {
	return recordDTO{
		Cluster:   k.Cluster(),
		IsEnglish: k.IsEnglish(),
		IsBrand:   k.IsBrand(),
		Intent:    string(k.Intent()),
	}
}

// toDomain rebuilds the record under the caller's spelling of the keyword.
func (d recordDTO) toDomain(original string) (keyword.AnalyzedKeyword, error) {
	intent, err := keyword.ParseIntent(d.Intent)
	if err != nil {
		return keyword.AnalyzedKeyword{}, err
	}
	return keyword.New(original, d.Cluster, d.IsEnglish, d.IsBrand, intent)
}
