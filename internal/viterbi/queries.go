package viterbi

const newViterbiJobMutation = `
	mutation NewViterbiJob($input: ViterbiJobMutationInput!) {
		newViterbiJob(input: $input) {
			result {
				jobId
			}
		}
	}
`

const publicViterbiJobsQuery = `
	query PublicViterbiJobs($search: String, $timeRange: String, $first: Int) {
		publicViterbiJobs(search: $search, timeRange: $timeRange, first: $first) {
			edges {
				node {
					id
					user
					name
					description
					jobStatus {
						name
						date
					}
				}
			}
		}
	}
`

const viterbiJobQuery = `
	query ViterbiJob($id: ID!) {
		viterbiJob(id: $id) {
			id
			name
			user
			description
			jobStatus {
				name
				date
			}
		}
	}
`

const viterbiJobsQuery = `
	query ViterbiJobs($first: Int) {
		viterbiJobs(first: $first) {
			edges {
				node {
					id
					name
					user
					description
					jobStatus {
						name
						date
					}
				}
			}
		}
	}
`

const viterbiResultFilesQuery = `
	query ViterbiResultFiles($jobId: ID!) {
		viterbiResultFiles(jobId: $jobId) {
			files {
				path
				isDir
				fileSize
				downloadToken
			}
		}
	}
`

const generateFileDownloadIDsMutation = `
	mutation ResultFileMutation($input: GenerateFileDownloadIdsInput!) {
		generateFileDownloadIds(input: $input) {
			result
		}
	}
`
