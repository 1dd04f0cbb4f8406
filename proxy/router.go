package proxy

import (
	"github.com/timor11/librealsense/remote"
)

// routeMetadata delivers one metadata record to the sensor owning the named
// stream. Records without a routable stream name and records naming a stream
// this device never advertised are dropped, counted, and logged at debug;
// the feed itself is never interrupted.
func (p *DeviceProxy) routeMetadata(rec remote.Metadata) {
	name, ok := rec.StreamName()
	if !ok {
		p.unroutable.Add(1)
		if p.metrics != nil {
			p.metrics.RecordMetadataDropped(p.info.Serial, dropNoStreamName)
		}
		p.logger.Debug("metadata record without stream name", "device", p.info.Serial)
		return
	}

	sp, ok := p.owner[name]
	if !ok {
		p.unroutable.Add(1)
		if p.metrics != nil {
			p.metrics.RecordMetadataDropped(p.info.Serial, dropUnknownStream)
		}
		p.logger.Debug("metadata for unknown stream", "device", p.info.Serial, "stream", name)
		return
	}

	sp.HandleMetadata(name, rec)
	p.routed.Add(1)
	if p.metrics != nil {
		p.metrics.RecordMetadataRouted(p.info.Serial, sp.Name())
	}
	if p.observer != nil {
		p.observer(rec)
	}
}

// MetadataStats returns the running routed and dropped record counts.
func (p *DeviceProxy) MetadataStats() (routed, unroutable uint64) {
	return p.routed.Load(), p.unroutable.Load()
}
