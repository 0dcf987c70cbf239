package scenario

func SetTitle(title string) UpdateSetter {
	return func(s *Scenario) error {
		if title == "" {
			return ErrInvalidTitle
		}
		s.Title = title
		return nil
	}
}

func SetDescription(description string) UpdateSetter {
	return func(s *Scenario) error {
		if description == "" {
			return ErrInvalidDescription
		}
		s.Description = description
		return nil
	}
}

func SetStatus(status Status) UpdateSetter {
	return func(s *Scenario) error {
		if !status.IsValid() {
			return ErrInvalidStatus
		}
		s.Status = status
		return nil
	}
}

func SetHintImages(refs HintImageRefs) UpdateSetter {
	return func(s *Scenario) error {
		s.HintImages = refs
		return nil
	}
}
