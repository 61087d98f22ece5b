package fpgasign

import "context"

type halDebug struct {
	id   string
	l    Logger
	next HAL
}

func (h *halDebug) Open(ctx context.Context) error {
	h.l.Printf("%5s >>  open", h.id)
	err := h.next.Open(ctx)
	h.l.Printf("%5s <<  open %+v", h.id, err)
	return err
}

func (h *halDebug) Tx(w, r []byte) error {
	h.l.Printf("%5s >>  tx(%d)", h.id, len(w))
	if len(w) > 0 {
		h.l.Printf("%s", hexDump(w))
	}
	err := h.next.Tx(w, r)
	h.l.Printf("%5s <<  tx %d %+v", h.id, len(r), err)
	if err == nil && len(r) > 0 {
		h.l.Printf("%s", hexDump(r))
	}
	return err
}

func (h *halDebug) Close() error {
	h.l.Printf("%5s >>  close", h.id)
	err := h.next.Close()
	h.l.Printf("%5s <<  close %+v", h.id, err)
	return err
}
