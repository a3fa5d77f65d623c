package processor

// Slicing geometry. Everything except the lower edge of the middle band is fixed.
const (
	TargetWidth    = 640
	SplitY1        = TargetWidth
	DefaultSplitY2 = SplitY1 + 160
	BottomHeight   = 480

	sideWidth   = 80
	centerWidth = 240
)

const (
	RegionLeftCenter  = "m_1"
	RegionRightCenter = "m_2"
	RegionMiddle      = "m_3"
	RegionBottom      = "m_4"
	RegionLeftEdge    = "m_5"
	RegionRightEdge   = "m_6"
)

type column struct {
	name  string
	x     int
	width int
}

// topColumns are the four regions of the top band, left to right.
var topColumns = []column{
	{name: RegionLeftEdge, x: 0, width: sideWidth},
	{name: RegionLeftCenter, x: sideWidth, width: centerWidth},
	{name: RegionRightCenter, x: sideWidth + centerWidth, width: centerWidth},
	{name: RegionRightEdge, x: TargetWidth - sideWidth, width: sideWidth},
}
