package browser

import "github.com/Rorqualx/smoothscroll-go/internal/scroll"

// MomentumHooks returns session hooks that cancel native momentum scrolling
// on page containers whenever an animation is interrupted.
func MomentumHooks() scroll.Hooks {
	return scroll.Hooks{
		OnFinalize: func(s *scroll.Session, r scroll.Result) {
			if !r.Interrupted() {
				return
			}
			if halter, ok := s.Container().(interface{ HaltMomentum() }); ok {
				halter.HaltMomentum()
			}
		},
	}
}
