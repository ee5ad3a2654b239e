package commands

import (
	"github.com/Widerk/shapesbonding/application/services"
	"github.com/Widerk/shapesbonding/pkg/utils"
)

// SaveProfileCommand saves a parameter set under Name. When Params is set
// it is saved as given and the workbench being edited is left alone;
// otherwise the workbench parameters are saved.
type SaveProfileCommand struct {
	UserID string            `json:"-" validate:"required"`
	Name   string            `json:"name" validate:"max=200"`
	Params map[string]string `json:"params,omitempty" validate:"omitempty,dive,keys,oneof=A B C D E L_start L_end rho,endkeys,max=64"`
	// Workbench, when set, is used instead of the user's session workbench.
	// Socket connections pass the workbench they edit.
	Workbench *services.Workbench `json:"-" validate:"-"`
}

// Validate validates the command
func (c SaveProfileCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// DeleteProfileCommand removes a saved profile
type DeleteProfileCommand struct {
	UserID    string              `json:"-" validate:"required"`
	ProfileID string              `json:"id" validate:"required"`
	Workbench *services.Workbench `json:"-" validate:"-"`
}

// Validate validates the command
func (c DeleteProfileCommand) Validate() error {
	return utils.ValidateStruct(c)
}
