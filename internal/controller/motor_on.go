package controller

// toMotorOn matches toMotorOnState(): just settle into the steady state.
func (c *Controller) toMotorOn() {
	c.State = MotorOn
	c.Step = 0
}

// handleMotorOn matches handleMotorOnState(): track how long ago the
// bike last moved or had assist engaged, fall back to TurnMotorOff after
// movingTimeout of neither, handle the calibrate gesture, and cycle the
// assist level on a mode button short press.
func (c *Controller) handleMotorOn(in Input) {
	now := Now()

	if c.Step == 0 || c.RespState.Speed > 0 || c.LevelSet != 0 {
		c.lastMoving = now
	}
	if c.Step == 0 {
		c.Step++
	}

	if now.Sub(c.lastMoving) > movingTimeout {
		c.toTurnMotorOff()
		return
	}

	if (c.RespState.Level == 0 && !c.RespState.LightOn && in.LightLongPress) || in.Calibrate {
		c.toCalibrate()
		return
	}

	if in.ModeShortPress {
		c.RespState.Level = (c.RespState.Level + 1) % 4
	}

	if c.RespState.Level != c.LevelSet {
		c.toSetAssistLevel()
		return
	}
}
