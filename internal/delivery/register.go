package delivery

// registerClient performs the one-shot client registration. Fire and
// forget: the backend tolerates repeated registrations of the same UUID,
// so a lost call is simply retried on the next process start.
func (c *Coordinator) registerClient() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		resp, err := c.post(registerPath, registrationPayloadFor(c.cfg.ClientUUID))
		if err != nil {
			c.logger.Debug().Err(err).Msg("Client registration failed")
			return
		}
		drainBody(resp)

		c.logger.Debug().
			Int("status", resp.StatusCode).
			Str("client_uuid", c.cfg.ClientUUID).
			Msg("Client registered")
	}()
}
