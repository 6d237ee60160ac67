package formula

import (
	"errors"
	"fmt"

	"github.com/SpaceTransformer/xgoals-framework/internal/models"
)

// ErrIncomplete marks a match whose statistics cannot feed the formulas
var ErrIncomplete = errors.New("match data incomplete")

// Features are the numeric inputs every formula consumes
type Features struct {
	HomeScored   float64 // home team, goals for per home game
	HomeConceded float64 // home team, goals against per home game
	AwayScored   float64 // away team, goals for per away game
	AwayConceded float64 // away team, goals against per away game
	LeagueAvg    float64 // mean of both teams' overall goals-for average

	Home models.TeamMatchStats
	Away models.TeamMatchStats
}

// ExtractFeatures derives formula inputs from a stored match record
func ExtractFeatures(rec *models.MatchRecord) (Features, error) {
	homeStats, err := rec.HomeSeasonStats()
	if err != nil {
		return Features{}, fmt.Errorf("%w: home stats: %v", ErrIncomplete, err)
	}
	awayStats, err := rec.AwaySeasonStats()
	if err != nil {
		return Features{}, fmt.Errorf("%w: away stats: %v", ErrIncomplete, err)
	}

	var f Features
	fields := []struct {
		name string
		v    models.StatValue
		dst  *float64
	}{
		{"home goals for (home)", homeStats.Goals.For.Average.Home, &f.HomeScored},
		{"home goals against (home)", homeStats.Goals.Against.Average.Home, &f.HomeConceded},
		{"away goals for (away)", awayStats.Goals.For.Average.Away, &f.AwayScored},
		{"away goals against (away)", awayStats.Goals.Against.Average.Away, &f.AwayConceded},
	}
	for _, fld := range fields {
		val, err := fld.v.Float()
		if err != nil {
			return Features{}, fmt.Errorf("%w: %s: %v", ErrIncomplete, fld.name, err)
		}
		*fld.dst = val
	}

	homeTotal, err := homeStats.Goals.For.Average.Total.Float()
	if err != nil {
		return Features{}, fmt.Errorf("%w: home goals for (total): %v", ErrIncomplete, err)
	}
	awayTotal, err := awayStats.Goals.For.Average.Total.Float()
	if err != nil {
		return Features{}, fmt.Errorf("%w: away goals for (total): %v", ErrIncomplete, err)
	}
	f.LeagueAvg = (homeTotal + awayTotal) / 2

	// Per-fixture statistics are optional; defaults apply when absent.
	if stats, err := rec.Statistics(); err == nil {
		f.Home = stats.Normalize(models.SideHome, rec.Teams.Home.ID)
		f.Away = stats.Normalize(models.SideAway, rec.Teams.Away.ID)
	} else {
		f.Home = models.MatchStatistics{}.Normalize(models.SideHome, 0)
		f.Away = models.MatchStatistics{}.Normalize(models.SideAway, 0)
	}

	return f, nil
}
