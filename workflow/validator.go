package workflow

import "github.com/go-playground/validator/v10"

// validatorUtil 请求参数和节点定义的校验, validator.Validate 并发安全, 全局共用一个
var validatorUtil = validator.New(validator.WithRequiredStructEnabled())
