package types

// Job 在批量流水线中流转的单元，样本进入，报告流出
type Job struct {
	Sample *Sample
	Report *Report
}

// Failed 标记样本处理失败，后续阶段直接透传
func (j *Job) Failed(err error) {
	if j.Report == nil {
		j.Report = &Report{}
	}
	if j.Sample != nil {
		j.Report.SampleID = j.Sample.ID
		j.Report.Domain = j.Sample.Domain
	}
	j.Report.Error = err.Error()
}

// HasError 样本是否已在前面的阶段失败
func (j *Job) HasError() bool {
	return j.Report != nil && j.Report.Error != ""
}
