package dunning

import (
	"time"

	"github.com/ju-nu/ShopwareDunning/internal/models"
)

const secondsPerDay = 86400

// Decide maps an order's recorded dunning state to the stage that is due now,
// or StageNone. Rules are evaluated in strict order, first match wins:
//
//  1. ignored orders never progress
//  2. no first reminder yet -> send it (regardless of clock)
//  3. first reminder older than the due interval, no Mahnung 1 -> Mahnung 1
//  4. Mahnung 1 older than the due interval, no Mahnung 2 -> Mahnung 2
//
// Pure and side-effect free. Markers only move forward: once a timestamp is
// set nothing un-sets it, so a lower stage can never be requested again.
func Decide(m models.StageMarkers, ignored bool, dueDays int, now time.Time) models.Stage {
	if ignored {
		return models.StageNone
	}
	if dueDays < 1 {
		dueDays = 1
	}
	due := int64(dueDays) * secondsPerDay
	ts := now.Unix()

	switch {
	case m.Stage1At == 0:
		return models.StageFirstReminder
	case m.Stage2At == 0 && ts-m.Stage1At >= due:
		return models.StageFirstDunning
	case m.Stage2At != 0 && m.Stage3At == 0 && ts-m.Stage2At >= due:
		return models.StageSecondDunning
	default:
		return models.StageNone
	}
}
