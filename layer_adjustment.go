package psd

// AdjustmentLayer preserves an adjustment layer the engine does not
// evaluate. Its defining tagged block travels in ExtraBlocks untouched,
// so round-trips keep the adjustment intact.
type AdjustmentLayer struct {
	layerBase

	// channels carries whatever channel planes the file declared for the
	// record; adjustment layers typically store empty planes.
	channels []*Channel
}

// NewAdjustmentLayer wraps a preserved adjustment record.
func NewAdjustmentLayer(name string) *AdjustmentLayer {
	return &AdjustmentLayer{layerBase: newLayerBase(name)}
}

// Channels returns the preserved channel planes.
func (l *AdjustmentLayer) Channels() []*Channel {
	return l.channels
}

// Clone returns a deep copy of the layer.
func (l *AdjustmentLayer) Clone() Layer {
	out := &AdjustmentLayer{layerBase: l.cloneBase()}
	for _, c := range l.channels {
		out.channels = append(out.channels, c.Clone())
	}
	if out.mask != nil && out.mask.Channel != nil {
		out.mask.Channel = out.mask.Channel.Clone()
	}
	return out
}

// adjustmentKeys is the set of tagged block keys that mark a layer record
// as an adjustment or fill layer.
var adjustmentKeys = map[string]bool{
	"SoCo": true, "GdFl": true, "PtFl": true, // fill layers
	"brit": true, "levl": true, "curv": true, "expA": true,
	"vibA": true, "hue ": true, "hue2": true, "blnc": true,
	"blwh": true, "phfl": true, "mixr": true, "clrL": true,
	"nvrt": true, "post": true, "thrs": true, "grdm": true,
	"selc": true,
}
