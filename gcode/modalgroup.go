package gcode

import "fmt"

// ModalGroup identifies a set of words of which only one may be active,
// and appear in a block, at a time.
type ModalGroup byte

const (
	ModalGroupNone ModalGroup = iota
	ModalGroupNonModal
	ModalGroupMotion
	ModalGroupPolar
	ModalGroupPlaneSelection
	ModalGroupDistanceMode
	ModalGroupArcDistanceMode
	ModalGroupFeedRateMode
	ModalGroupUnits
	ModalGroupCutterCompensationMode
	ModalGroupToolLength
	ModalGroupCannedCyclesReturn
	ModalGroupCoordinateSystem
	ModalGroupControlMode
	ModalGroupSpindleMode
	ModalGroupLatheDiameterMode
	ModalGroupStopping
	ModalGroupToolChange
	ModalGroupSpindle
	ModalGroupCoolant
	ModalGroupOverride
	ModalGroupFeedRate
)

var modalGroupNames = [...]string{
	ModalGroupNone:                   "none",
	ModalGroupNonModal:               "non-modal",
	ModalGroupMotion:                 "motion",
	ModalGroupPolar:                  "polar",
	ModalGroupPlaneSelection:         "plane selection",
	ModalGroupDistanceMode:           "distance mode",
	ModalGroupArcDistanceMode:        "arc distance mode",
	ModalGroupFeedRateMode:           "feed rate mode",
	ModalGroupUnits:                  "units",
	ModalGroupCutterCompensationMode: "cutter compensation",
	ModalGroupToolLength:             "tool length offset",
	ModalGroupCannedCyclesReturn:     "canned cycle return",
	ModalGroupCoordinateSystem:       "coordinate system",
	ModalGroupControlMode:            "path control mode",
	ModalGroupSpindleMode:            "spindle speed mode",
	ModalGroupLatheDiameterMode:      "lathe diameter mode",
	ModalGroupStopping:               "stopping",
	ModalGroupToolChange:             "tool change",
	ModalGroupSpindle:                "spindle",
	ModalGroupCoolant:                "coolant",
	ModalGroupOverride:               "override",
	ModalGroupFeedRate:               "feed rate",
}

func (g ModalGroup) String() string {
	if int(g) < len(modalGroupNames) {
		return modalGroupNames[g]
	}
	return fmt.Sprintf("ModalGroup(%d)", byte(g))
}

// Modal reports whether words of the group stay in effect after their
// block.
func (g ModalGroup) Modal() bool {
	return g != ModalGroupNone && g != ModalGroupNonModal
}

// codes lists the G and M numbers of each group.
var (
	gCodes = map[ModalGroup][]float64{
		ModalGroupNonModal:               {4, 10, 28, 28.1, 30, 30.1, 53, 92, 92.1, 92.2, 92.3},
		ModalGroupMotion:                 {0, 1, 2, 3, 5, 5.1, 33, 38.2, 38.3, 38.4, 38.5, 73, 76, 80, 81, 82, 83, 84, 85, 86, 87, 88, 89},
		ModalGroupPolar:                  {15, 16},
		ModalGroupPlaneSelection:         {17, 18, 19, 17.1, 18.1, 19.1},
		ModalGroupDistanceMode:           {90, 91},
		ModalGroupArcDistanceMode:        {90.1, 91.1},
		ModalGroupFeedRateMode:           {93, 94, 95},
		ModalGroupUnits:                  {20, 21},
		ModalGroupCutterCompensationMode: {40, 41, 41.1, 42, 42.1},
		ModalGroupToolLength:             {43, 43.1, 49},
		ModalGroupCannedCyclesReturn:     {98, 99},
		ModalGroupCoordinateSystem:       {54, 55, 56, 57, 58, 59, 59.1, 59.2, 59.3},
		ModalGroupControlMode:            {61, 61.1, 64},
		ModalGroupSpindleMode:            {96, 97},
		ModalGroupLatheDiameterMode:      {7, 8},
	}
	mCodes = map[ModalGroup][]float64{
		ModalGroupStopping:   {0, 1, 2, 30, 60},
		ModalGroupToolChange: {6, 61},
		ModalGroupSpindle:    {3, 4, 5},
		ModalGroupCoolant:    {7, 8, 9},
		ModalGroupOverride:   {48, 49, 50, 51, 52, 53},
	}

	gGroups = invert(gCodes)
	mGroups = invert(mCodes)
)

func invert(codes map[ModalGroup][]float64) map[float64]ModalGroup {
	res := make(map[float64]ModalGroup)
	for g, nums := range codes {
		for _, n := range nums {
			res[n] = g
		}
	}
	return res
}

// ModalGroup returns the group of a G, M or F word. Other words, and
// unknown G and M numbers, belong to ModalGroupNone.
func (w Word) ModalGroup() ModalGroup {
	switch w.W {
	case 'G':
		return gGroups[w.Arg]
	case 'M':
		return mGroups[w.Arg]
	case 'F':
		return ModalGroupFeedRate
	}
	return ModalGroupNone
}
